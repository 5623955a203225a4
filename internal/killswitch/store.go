package killswitch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// stateKey is where the redis store keeps the serialized switch state.
const stateKey = "kill_switch:state"

// RedisStore persists kill switch state in redis so every gateway instance
// observes the same halt.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a store on the given redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get implements Store. A missing key means the switch has never been
// touched: inactive.
func (s *RedisStore) Get(ctx context.Context) (State, error) {
	raw, err := s.rdb.Get(ctx, stateKey).Result()
	if err == redis.Nil {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("kill switch get: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, fmt.Errorf("kill switch decode: %w", err)
	}
	return state, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("kill switch encode: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("kill switch set: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and single-process runs.
type MemoryStore struct {
	mu     sync.RWMutex
	state  State
	err    error
	getErr error // read-only failure injection
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an inactive in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailWith makes every call return err until reset with FailWith(nil);
// tests use it to exercise the fail-closed path.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return State{}, s.err
	}
	if s.getErr != nil {
		return State{}, s.getErr
	}
	return s.state, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.state = state
	return nil
}
