package risk

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle windows. Cutoffs are always computed in the core; the store is
// only trusted for ordered storage and range queries.
const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	// throttleRetention is how long submission timestamps are kept.
	throttleRetention = 24 * time.Hour
)

// ThrottleStore is an ordered collection of submission timestamps per
// strategy with range-by-score semantics. Scores are unix-second timestamps.
type ThrottleStore interface {
	// Add records a submission at ts for the strategy.
	Add(ctx context.Context, strategyID string, ts time.Time) error
	// CountSince returns how many submissions the strategy has made at or
	// after the cutoff.
	CountSince(ctx context.Context, strategyID string, cutoff time.Time) (int, error)
}

// RedisThrottleStore keeps per-strategy submission timestamps in a redis
// sorted set keyed throttle:<strategy>:orders.
type RedisThrottleStore struct {
	rdb *redis.Client
}

var _ ThrottleStore = (*RedisThrottleStore)(nil)

// NewRedisThrottleStore builds a throttle store on the given redis client.
func NewRedisThrottleStore(rdb *redis.Client) *RedisThrottleStore {
	return &RedisThrottleStore{rdb: rdb}
}

func throttleKey(strategyID string) string {
	return "throttle:" + strategyID + ":orders"
}

// Add implements ThrottleStore. Members carry nanosecond precision so two
// submissions in the same second stay distinct; scores stay unix seconds.
func (s *RedisThrottleStore) Add(ctx context.Context, strategyID string, ts time.Time) error {
	key := throttleKey(strategyID)
	member := strconv.FormatInt(ts.UnixNano(), 10)
	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: float64(ts.Unix()), Member: member}).Err(); err != nil {
		return fmt.Errorf("throttle add %s: %w", strategyID, err)
	}
	if err := s.rdb.Expire(ctx, key, throttleRetention).Err(); err != nil {
		return fmt.Errorf("throttle expire %s: %w", strategyID, err)
	}
	return nil
}

// CountSince implements ThrottleStore.
func (s *RedisThrottleStore) CountSince(ctx context.Context, strategyID string, cutoff time.Time) (int, error) {
	min := strconv.FormatInt(cutoff.Unix(), 10)
	n, err := s.rdb.ZCount(ctx, throttleKey(strategyID), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("throttle count %s: %w", strategyID, err)
	}
	return int(n), nil
}

// MemoryThrottleStore is an in-memory ThrottleStore with identical semantics
// to the redis store, used in tests and single-process dry runs.
type MemoryThrottleStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

var _ ThrottleStore = (*MemoryThrottleStore)(nil)

// NewMemoryThrottleStore returns an empty in-memory throttle store.
func NewMemoryThrottleStore() *MemoryThrottleStore {
	return &MemoryThrottleStore{entries: make(map[string][]time.Time)}
}

// Add implements ThrottleStore.
func (s *MemoryThrottleStore) Add(_ context.Context, strategyID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.entries[strategyID], ts)
	sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })

	// Evict entries past retention to keep the slice bounded.
	cut := ts.Add(-throttleRetention)
	for len(list) > 0 && list[0].Before(cut) {
		list = list[1:]
	}
	s.entries[strategyID] = list
	return nil
}

// CountSince implements ThrottleStore.
func (s *MemoryThrottleStore) CountSince(_ context.Context, strategyID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ts := range s.entries[strategyID] {
		// Match sorted-set range semantics: unix-second score, inclusive min.
		if ts.Unix() >= cutoff.Unix() {
			n++
		}
	}
	return n, nil
}

// ThrottleChecker enforces per-strategy sliding-window submission limits.
type ThrottleChecker struct {
	store ThrottleStore
	now   func() time.Time
}

// NewThrottleChecker builds a throttle checker on the given store.
func NewThrottleChecker(store ThrottleStore) *ThrottleChecker {
	return &ThrottleChecker{store: store, now: time.Now}
}

// CheckRateLimit checks the minute and hour windows for the strategy. When
// both pass, the current timestamp is recorded; when either fails, nothing
// is recorded so a rejected signal never consumes budget.
func (c *ThrottleChecker) CheckRateLimit(ctx context.Context, strategyID string, limits Limits) (bool, string, error) {
	now := c.now().UTC()

	lastMinute, err := c.store.CountSince(ctx, strategyID, now.Add(-minuteWindow))
	if err != nil {
		return false, "", err
	}
	if lastMinute >= limits.MaxOrdersPerStrategyPerMinute {
		return false, fmt.Sprintf("Rate limit exceeded: %d orders in last minute (max: %d)",
			lastMinute, limits.MaxOrdersPerStrategyPerMinute), nil
	}

	lastHour, err := c.store.CountSince(ctx, strategyID, now.Add(-hourWindow))
	if err != nil {
		return false, "", err
	}
	if lastHour >= limits.MaxOrdersPerStrategyPerHour {
		return false, fmt.Sprintf("Rate limit exceeded: %d orders in last hour (max: %d)",
			lastHour, limits.MaxOrdersPerStrategyPerHour), nil
	}

	if err := c.store.Add(ctx, strategyID, now); err != nil {
		return false, "", err
	}
	return true, "", nil
}
