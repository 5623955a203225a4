package killswitch

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSwitchLifecycle(t *testing.T) {
	ctx := context.Background()
	sw := New(NewMemoryStore(), quietLogger())

	assert.False(t, sw.IsActive(ctx))

	require.NoError(t, sw.Activate(ctx, "drill"))
	assert.True(t, sw.IsActive(ctx))

	state, err := sw.Status(ctx)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, "drill", state.Reason)
	require.NotNil(t, state.ActivatedAt)

	require.NoError(t, sw.Deactivate(ctx, "drill over"))
	assert.False(t, sw.IsActive(ctx))

	state, err = sw.Status(ctx)
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, "drill over", state.DeactivationReason)
	require.NotNil(t, state.DeactivatedAt)
	// Activation metadata survives deactivation.
	assert.Equal(t, "drill", state.Reason)
}

func TestIsActiveFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sw := New(store, quietLogger())

	store.FailWith(errors.New("store down"))
	assert.True(t, sw.IsActive(ctx), "unreadable state must halt trading")

	store.FailWith(nil)
	assert.False(t, sw.IsActive(ctx))
}

func TestActivateWorksWhenStateUnreadable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sw := New(store, quietLogger())

	// Get fails but Set succeeds: activation must still go through.
	store.getErr = errors.New("read failure")
	require.NoError(t, sw.Activate(ctx, "emergency"))

	store.getErr = nil
	assert.True(t, sw.IsActive(ctx))
}
