package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*httptest.Server, *HTTPClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/positions/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"symbol": "AAPL", "position": 95_000.0})
	})
	mux.HandleFunc("/api/v1/positions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]float64{"AAPL": 95_000, "MSFT": -20_000})
	})
	mux.HandleFunc("/api/v1/value", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": 1_000_000.0})
	})
	mux.HandleFunc("/api/v1/pnl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("strategy_id") == "strat-a" {
			_ = json.NewEncoder(w).Encode(map[string]any{"pnl": -4_200.0})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"pnl": -9_000.0})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewHTTPClient(srv.URL)
}

func TestHTTPClientReads(t *testing.T) {
	_, client := newTestService(t)
	ctx := context.Background()

	pos, err := client.Position(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 95_000.0, pos)

	all, err := client.AllPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, -20_000.0, all["MSFT"])

	value, err := client.PortfolioValue(ctx)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, 1_000_000.0, *value)

	since := time.Now().UTC().Truncate(24 * time.Hour)
	pnl, err := client.StrategyDailyPnL(ctx, "strat-a", since)
	require.NoError(t, err)
	assert.Equal(t, -4_200.0, pnl)

	total, err := client.TotalDailyPnL(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, -9_000.0, total)
}

func TestHTTPClientNilPortfolioValue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/value", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"value": nil})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL)
	value, err := client.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestHTTPClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL)
	_, err := client.Position(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
