package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/halligan/tradegate/internal/models"
)

// IBKRBroker is a connection-gated placeholder for an Interactive Brokers
// integration. Every call checks connectivity first; beyond that the
// capabilities report ErrUnsupported until the TWS wiring lands.
type IBKRBroker struct {
	host     string
	port     int
	clientID int

	mu        sync.Mutex
	connected bool
}

var _ Broker = (*IBKRBroker)(nil)

// NewIBKRBroker builds an adapter pointed at a TWS or IB Gateway endpoint.
func NewIBKRBroker(host string, port, clientID int) *IBKRBroker {
	return &IBKRBroker{host: host, port: port, clientID: clientID}
}

// Name implements Broker.
func (b *IBKRBroker) Name() string {
	return "IBKR"
}

// Connect marks the adapter connected.
// TODO: dial TWS here once the IB client library is chosen.
func (b *IBKRBroker) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

// Disconnect marks the adapter disconnected.
func (b *IBKRBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

func (b *IBKRBroker) checkConnected() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return &ConnectionError{Broker: b.Name(), Err: fmt.Errorf("not connected to %s:%d", b.host, b.port)}
	}
	return nil
}

// SubmitOrder implements Broker.
func (b *IBKRBroker) SubmitOrder(_ context.Context, _ OrderRequest) (string, error) {
	if err := b.checkConnected(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("ibkr order submission: %w", ErrUnsupported)
}

// CancelOrder implements Broker.
func (b *IBKRBroker) CancelOrder(_ context.Context, _ string) (bool, error) {
	if err := b.checkConnected(); err != nil {
		return false, err
	}
	return false, fmt.Errorf("ibkr order cancellation: %w", ErrUnsupported)
}

// OrderStatus implements Broker.
func (b *IBKRBroker) OrderStatus(_ context.Context, _ string) (*BrokerOrder, error) {
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("ibkr order status: %w", ErrUnsupported)
}

// Fills implements Broker.
func (b *IBKRBroker) Fills(_ context.Context, _ string) ([]models.Fill, error) {
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("ibkr fills: %w", ErrUnsupported)
}

// SubmitOptionOrder implements Broker.
func (b *IBKRBroker) SubmitOptionOrder(_ context.Context, _ models.OptionLeg, _ *float64) (string, error) {
	if err := b.checkConnected(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("ibkr option orders: %w", ErrUnsupported)
}

// SubmitOptionSpread implements Broker.
func (b *IBKRBroker) SubmitOptionSpread(_ context.Context, _ []models.OptionLeg, _ *float64) (string, error) {
	if err := b.checkConnected(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("ibkr option spreads: %w", ErrUnsupported)
}

// OptionFills implements Broker.
func (b *IBKRBroker) OptionFills(_ context.Context, _ string) ([]models.OptionFill, error) {
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("ibkr option fills: %w", ErrUnsupported)
}
