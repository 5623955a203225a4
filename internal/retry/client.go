// Package retry wraps a broker adapter with bounded retries on transient
// connection failures.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/models"
)

// Config bounds the retry loop.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig is the stock retry policy.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Client decorates a broker adapter with retries. Only errors meaning the
// request never reached the broker are retried, so a retry cannot duplicate
// an accepted order. Rejections and unsupported capabilities surface
// immediately.
type Client struct {
	next   broker.Broker
	logger *log.Logger
	config Config
}

var _ broker.Broker = (*Client)(nil)

// NewClient wraps the given adapter.
func NewClient(next broker.Broker, logger *log.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{next: next, logger: logger, config: cfg}
}

// Name implements broker.Broker.
func (c *Client) Name() string {
	return c.next.Name()
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	backoff := c.config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				c.logger.Printf("%s succeeded on attempt %d", op, attempt+1)
			}
			return nil
		}
		lastErr = err

		if !isTransient(err) || attempt == c.config.MaxRetries {
			return lastErr
		}

		c.logger.Printf("%s attempt %d/%d failed: %v, retrying in %v",
			op, attempt+1, c.config.MaxRetries+1, err, backoff)
		select {
		case <-time.After(backoff):
			backoff = c.nextBackoff(backoff)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// SubmitOrder implements broker.Broker.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	var id string
	err := c.do(ctx, "submit order", func() error {
		var err error
		id, err = c.next.SubmitOrder(ctx, req)
		return err
	})
	return id, err
}

// CancelOrder implements broker.Broker.
func (c *Client) CancelOrder(ctx context.Context, brokerOrderID string) (bool, error) {
	var ok bool
	err := c.do(ctx, "cancel order", func() error {
		var err error
		ok, err = c.next.CancelOrder(ctx, brokerOrderID)
		return err
	})
	return ok, err
}

// OrderStatus implements broker.Broker.
func (c *Client) OrderStatus(ctx context.Context, brokerOrderID string) (*broker.BrokerOrder, error) {
	var status *broker.BrokerOrder
	err := c.do(ctx, "order status", func() error {
		var err error
		status, err = c.next.OrderStatus(ctx, brokerOrderID)
		return err
	})
	return status, err
}

// Fills implements broker.Broker.
func (c *Client) Fills(ctx context.Context, brokerOrderID string) ([]models.Fill, error) {
	var fills []models.Fill
	err := c.do(ctx, "fills", func() error {
		var err error
		fills, err = c.next.Fills(ctx, brokerOrderID)
		return err
	})
	return fills, err
}

// SubmitOptionOrder implements broker.Broker.
func (c *Client) SubmitOptionOrder(ctx context.Context, leg models.OptionLeg, limitPrice *float64) (string, error) {
	var id string
	err := c.do(ctx, "submit option order", func() error {
		var err error
		id, err = c.next.SubmitOptionOrder(ctx, leg, limitPrice)
		return err
	})
	return id, err
}

// SubmitOptionSpread implements broker.Broker.
func (c *Client) SubmitOptionSpread(ctx context.Context, legs []models.OptionLeg, limitPrice *float64) (string, error) {
	var id string
	err := c.do(ctx, "submit option spread", func() error {
		var err error
		id, err = c.next.SubmitOptionSpread(ctx, legs, limitPrice)
		return err
	})
	return id, err
}

// OptionFills implements broker.Broker.
func (c *Client) OptionFills(ctx context.Context, brokerOrderID string) ([]models.OptionFill, error) {
	var fills []models.OptionFill
	err := c.do(ctx, "option fills", func() error {
		var err error
		fills, err = c.next.OptionFills(ctx, brokerOrderID)
		return err
	})
	return fills, err
}

func (c *Client) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * 1.5)
	if next > c.config.MaxBackoff {
		next = c.config.MaxBackoff
	}

	maxJitter := int64(next / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.logger.Printf("Failed to generate jitter: %v", err)
		} else {
			next += time.Duration(jitterVal.Int64())
		}
	}
	return next
}

// isTransient reports whether the error means the request may never have
// reached the broker. Connection errors qualify; order rejections and
// unsupported capabilities never do.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var connErr *broker.ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var orderErr *broker.OrderError
	if errors.As(err, &orderErr) || errors.Is(err, broker.ErrUnsupported) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"network",
		"dns",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
