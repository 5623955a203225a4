// Command engine runs the trade gateway: HTTP signal ingestion in front of
// the risk engine, kill switch, and broker adapters.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/halligan/tradegate/internal/api"
	"github.com/halligan/tradegate/internal/audit"
	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/config"
	"github.com/halligan/tradegate/internal/exec"
	"github.com/halligan/tradegate/internal/killswitch"
	"github.com/halligan/tradegate/internal/pipeline"
	"github.com/halligan/tradegate/internal/portfolio"
	"github.com/halligan/tradegate/internal/retry"
	"github.com/halligan/tradegate/internal/risk"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyEnvOverrides(cfg)

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.Infof("Starting trade gateway in %s mode", cfg.Environment.Mode)
	if cfg.IsPaperTrading() {
		logger.Info("Paper trading mode - no real money at risk")
	}

	// Shared state stores: redis when configured, process-local otherwise.
	var killStore killswitch.Store
	var throttleStore risk.ThrottleStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		killStore = killswitch.NewRedisStore(rdb)
		throttleStore = risk.NewRedisThrottleStore(rdb)
	} else {
		logger.Warn("No redis configured, using in-memory state stores")
		killStore = killswitch.NewMemoryStore()
		throttleStore = risk.NewMemoryThrottleStore()
	}
	kill := killswitch.New(killStore, log.New(os.Stderr, "killswitch: ", log.LstdFlags))

	var portfolioClient portfolio.Client
	if cfg.Portfolio.URL != "" {
		portfolioClient = portfolio.NewHTTPClient(cfg.Portfolio.URL)
	} else {
		logger.Warn("No portfolio service configured, using in-memory client")
		portfolioClient = portfolio.NewMemoryClient()
	}

	var adapter broker.Broker
	switch cfg.Broker.Provider {
	case "ibkr":
		adapter = broker.NewIBKRBroker(cfg.Broker.IBKR.Host, cfg.Broker.IBKR.Port, cfg.Broker.IBKR.ClientID)
	default:
		adapter = broker.NewPaperBroker(cfg.Broker.SlippageBps)
	}
	// Circuit breaker counts raw adapter failures and fails fast once open;
	// the retry layer sits outside it and retries only transient connection
	// errors, so an open breaker is never hammered.
	wrapped := retry.NewClient(
		broker.NewCircuitBreakerBroker(adapter),
		log.New(os.Stderr, "broker: ", log.LstdFlags),
	)

	decisionSink, err := openSink(cfg.Audit.DecisionLog)
	if err != nil {
		log.Fatalf("Failed to open decision log: %v", err)
	}
	tradeSink, err := openSink(cfg.Audit.TradeLog)
	if err != nil {
		log.Fatalf("Failed to open trade log: %v", err)
	}
	decisions := audit.NewDecisionLog(decisionSink)
	trades := audit.NewTradeLog(tradeSink)

	stop := make(chan struct{})
	monitor := exec.NewMonitor(
		wrapped,
		exec.NewFillProcessor(),
		trades,
		log.New(os.Stderr, "exec: ", log.LstdFlags),
		stop,
	)

	riskChecker := risk.NewPreTradeChecker(portfolioClient, throttleStore, cfg.Risk)
	router := exec.NewOrderRouter(wrapped)
	pipe := pipeline.New(riskChecker, router, kill, decisions, trades, monitor, logger)

	server := api.NewServer(api.Config{Port: cfg.Server.Port}, pipe, kill, decisions, trades, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received, stopping gateway")
		close(stop)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Gateway error")
	}
	logger.Info("Gateway stopped")
}

// applyEnvOverrides lets deploy environments override the listener port and
// portfolio endpoint without editing the config file.
func applyEnvOverrides(cfg *config.Config) {
	if raw := os.Getenv("PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			cfg.Server.Port = port
		}
	}
	if url := os.Getenv("PORTFOLIO_SERVICE_URL"); url != "" {
		cfg.Portfolio.URL = url
	}
}

// openSink opens an audit sink, with an empty path meaning memory-only.
func openSink(path string) (io.Writer, error) {
	if path == "" {
		return nil, nil
	}
	return audit.OpenSink(path)
}
