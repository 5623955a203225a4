package exec

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/models"
)

// MonitorConfig contains configuration for the fill monitor.
type MonitorConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	CallTimeout  time.Duration
}

// DefaultMonitorConfig is the default configuration for the fill monitor.
var DefaultMonitorConfig = MonitorConfig{
	PollInterval: 2 * time.Second,
	Timeout:      5 * time.Minute,
	CallTimeout:  5 * time.Second,
}

// TradeRecorder is the slice of the trade audit log the monitor needs.
type TradeRecorder interface {
	OrderFilled(order *models.Order, fill models.Fill) error
	FillDiscarded(orderID, brokerOrderID, reason string) error
}

// Monitor polls a broker for fills on submitted orders and applies them.
// Each fill is applied exactly once; fills that fail validation are
// discarded with an audit record rather than touching the order.
type Monitor struct {
	broker    broker.Broker
	processor *FillProcessor
	trades    TradeRecorder
	logger    *log.Logger
	stop      <-chan struct{}
	config    MonitorConfig
}

// NewMonitor creates a fill monitor.
func NewMonitor(
	b broker.Broker,
	processor *FillProcessor,
	trades TradeRecorder,
	logger *log.Logger,
	stop <-chan struct{},
	config ...MonitorConfig,
) *Monitor {
	cfg := DefaultMonitorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultMonitorConfig.PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMonitorConfig.Timeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultMonitorConfig.CallTimeout
	}

	if logger == nil {
		logger = log.New(os.Stderr, "exec: ", log.LstdFlags)
	}
	if b == nil {
		panic("exec.NewMonitor: broker must not be nil")
	}
	if processor == nil {
		panic("exec.NewMonitor: processor must not be nil")
	}
	if trades == nil {
		panic("exec.NewMonitor: trades must not be nil")
	}

	return &Monitor{
		broker:    b,
		processor: processor,
		trades:    trades,
		logger:    logger,
		stop:      stop,
		config:    cfg,
	}
}

// WatchOrder polls until the order reaches a terminal state, the monitor
// times out, or shutdown is signalled. It blocks; callers run it in a
// goroutine per order.
func (m *Monitor) WatchOrder(order *models.Order) {
	m.logger.Printf("Watching order %s (broker order %s) for fills", order.OrderID, order.BrokerOrderID)

	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			m.logger.Printf("Fill polling timeout for order %s", order.OrderID)
			return
		case <-m.stop:
			m.logger.Printf("Shutdown signal received while watching order %s", order.OrderID)
			return
		case <-ticker.C:
			callCtx, callCancel := context.WithTimeout(ctx, m.config.CallTimeout)
			fills, err := m.broker.Fills(callCtx, order.BrokerOrderID)
			callCancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					m.logger.Printf("Fills call timeout for order %s", order.OrderID)
					continue
				}
				m.logger.Printf("Fills call failed for order %s: %v", order.OrderID, err)
				continue
			}

			for _, fill := range fills {
				if seen[fill.FillID] {
					continue
				}
				seen[fill.FillID] = true
				m.applyFill(order, fill)
			}

			if order.IsTerminal() {
				m.logger.Printf("Order %s reached terminal state %s", order.OrderID, order.Status)
				return
			}
		}
	}
}

func (m *Monitor) applyFill(order *models.Order, fill models.Fill) {
	if ok, reason := ValidateFill(fill, order); !ok {
		m.logger.Printf("Discarding fill %s for order %s: %s", fill.FillID, order.OrderID, reason)
		if err := m.trades.FillDiscarded(order.OrderID, fill.BrokerOrderID, reason); err != nil {
			m.logger.Printf("Recording discarded fill failed: %v", err)
		}
		return
	}

	if err := m.processor.ApplyFill(order, fill); err != nil {
		m.logger.Printf("Applying fill %s to order %s failed: %v", fill.FillID, order.OrderID, err)
		if rerr := m.trades.FillDiscarded(order.OrderID, fill.BrokerOrderID, err.Error()); rerr != nil {
			m.logger.Printf("Recording discarded fill failed: %v", rerr)
		}
		return
	}

	if err := m.trades.OrderFilled(order, fill); err != nil {
		m.logger.Printf("Recording fill %s failed: %v", fill.FillID, err)
	}
}
