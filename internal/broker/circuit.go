package broker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/halligan/tradegate/internal/models"
)

// CircuitBreakerBroker wraps a Broker with circuit breaker functionality so
// a flapping brokerage connection stops consuming the order flow.
type CircuitBreakerBroker struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
}

var _ Broker = (*CircuitBreakerBroker)(nil)

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods.
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	broker Broker,
	fn func(Broker) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(broker) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior.
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerBroker creates a CircuitBreakerBroker with sensible defaults.
func NewCircuitBreakerBroker(broker Broker) *CircuitBreakerBroker {
	return NewCircuitBreakerBrokerWithSettings(broker, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerBrokerWithSettings creates a CircuitBreakerBroker with custom settings.
func NewCircuitBreakerBrokerWithSettings(broker Broker, settings CircuitBreakerSettings) *CircuitBreakerBroker {
	gbSettings := gobreaker.Settings{
		Name:        broker.Name() + "CircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerBroker{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Name returns the wrapped adapter's name.
func (c *CircuitBreakerBroker) Name() string {
	return c.broker.Name()
}

// SubmitOrder wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) SubmitOrder(ctx context.Context, req OrderRequest) (string, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (string, error) {
		return b.SubmitOrder(ctx, req)
	})
}

// CancelOrder wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) CancelOrder(ctx context.Context, brokerOrderID string) (bool, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (bool, error) {
		return b.CancelOrder(ctx, brokerOrderID)
	})
}

// OrderStatus wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) OrderStatus(ctx context.Context, brokerOrderID string) (*BrokerOrder, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*BrokerOrder, error) {
		return b.OrderStatus(ctx, brokerOrderID)
	})
}

// Fills wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) Fills(ctx context.Context, brokerOrderID string) ([]models.Fill, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]models.Fill, error) {
		return b.Fills(ctx, brokerOrderID)
	})
}

// SubmitOptionOrder wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) SubmitOptionOrder(ctx context.Context, leg models.OptionLeg, limitPrice *float64) (string, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (string, error) {
		return b.SubmitOptionOrder(ctx, leg, limitPrice)
	})
}

// SubmitOptionSpread wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) SubmitOptionSpread(ctx context.Context, legs []models.OptionLeg, limitPrice *float64) (string, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (string, error) {
		return b.SubmitOptionSpread(ctx, legs, limitPrice)
	})
}

// OptionFills wraps the underlying broker call with circuit breaker.
func (c *CircuitBreakerBroker) OptionFills(ctx context.Context, brokerOrderID string) ([]models.OptionFill, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]models.OptionFill, error) {
		return b.OptionFills(ctx, brokerOrderID)
	})
}
