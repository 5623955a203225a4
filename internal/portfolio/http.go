package portfolio

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient talks to the portfolio service over its REST API.
type HTTPClient struct {
	client *resty.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a portfolio client for the given base URL. Transient
// failures are retried by the underlying client; the caller's context still
// bounds the whole call.
func NewHTTPClient(baseURL string) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(250 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &HTTPClient{client: c}
}

type positionResponse struct {
	Symbol   string  `json:"symbol"`
	Position float64 `json:"position"`
}

type valueResponse struct {
	Value *float64 `json:"value"`
}

type pnlResponse struct {
	PnL float64 `json:"pnl"`
}

// Position implements Client.
func (h *HTTPClient) Position(ctx context.Context, symbol string) (float64, error) {
	var out positionResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("symbol", symbol).
		Get("/api/v1/positions/{symbol}")
	if err != nil {
		return 0, fmt.Errorf("portfolio position %s: %w", symbol, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("portfolio position %s: %s", symbol, resp.Status())
	}
	return out.Position, nil
}

// AllPositions implements Client.
func (h *HTTPClient) AllPositions(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/positions")
	if err != nil {
		return nil, fmt.Errorf("portfolio positions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("portfolio positions: %s", resp.Status())
	}
	return out, nil
}

// PortfolioValue implements Client.
func (h *HTTPClient) PortfolioValue(ctx context.Context) (*float64, error) {
	var out valueResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/value")
	if err != nil {
		return nil, fmt.Errorf("portfolio value: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("portfolio value: %s", resp.Status())
	}
	return out.Value, nil
}

// StrategyDailyPnL implements Client.
func (h *HTTPClient) StrategyDailyPnL(ctx context.Context, strategyID string, since time.Time) (float64, error) {
	var out pnlResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParams(map[string]string{
			"strategy_id": strategyID,
			"since":       since.UTC().Format(time.RFC3339),
		}).
		Get("/api/v1/pnl")
	if err != nil {
		return 0, fmt.Errorf("portfolio strategy pnl %s: %w", strategyID, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("portfolio strategy pnl %s: %s", strategyID, resp.Status())
	}
	return out.PnL, nil
}

// TotalDailyPnL implements Client.
func (h *HTTPClient) TotalDailyPnL(ctx context.Context, since time.Time) (float64, error) {
	var out pnlResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("since", since.UTC().Format(time.RFC3339)).
		Get("/api/v1/pnl")
	if err != nil {
		return 0, fmt.Errorf("portfolio total pnl: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("portfolio total pnl: %s", resp.Status())
	}
	return out.PnL, nil
}
