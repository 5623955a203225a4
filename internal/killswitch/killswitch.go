// Package killswitch implements the global trading halt: an externalized
// boolean with reason metadata, read before any other work on every signal.
package killswitch

import (
	"context"
	"log"
	"time"
)

// State is the kill switch state with its activation metadata.
type State struct {
	Active             bool       `json:"active"`
	Reason             string     `json:"reason,omitempty"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
}

// Store persists kill switch state. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context) (State, error)
	Set(ctx context.Context, state State) error
}

// Switch is the halt primitive the pipeline consults. When the backing
// store is unreachable it fails closed: trading is treated as halted.
type Switch struct {
	store  Store
	logger *log.Logger
}

// New builds a kill switch on the given store.
func New(store Store, logger *log.Logger) *Switch {
	if logger == nil {
		logger = log.Default()
	}
	return &Switch{store: store, logger: logger}
}

// IsActive reports whether trading is halted. A store error halts trading:
// losing sight of the switch must never allow orders through.
func (s *Switch) IsActive(ctx context.Context) bool {
	state, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Printf("kill switch store unavailable, failing closed: %v", err)
		return true
	}
	return state.Active
}

// Activate halts trading, recording the reason and timestamp.
func (s *Switch) Activate(ctx context.Context, reason string) error {
	state, err := s.store.Get(ctx)
	if err != nil {
		// Activation must still work when the prior state is unreadable.
		state = State{}
	}
	now := time.Now().UTC()
	state.Active = true
	state.Reason = reason
	state.ActivatedAt = &now
	return s.store.Set(ctx, state)
}

// Deactivate resumes trading, recording the reason and timestamp.
func (s *Switch) Deactivate(ctx context.Context, reason string) error {
	state, err := s.store.Get(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	state.Active = false
	state.DeactivatedAt = &now
	state.DeactivationReason = reason
	return s.store.Set(ctx, state)
}

// Status returns the full state with metadata.
func (s *Switch) Status(ctx context.Context) (State, error) {
	return s.store.Get(ctx)
}
