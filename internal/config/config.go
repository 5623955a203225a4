// Package config provides configuration management for the trade gateway.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/halligan/tradegate/internal/risk"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Broker      BrokerConfig      `yaml:"broker"`
	Redis       RedisConfig       `yaml:"redis"`
	Portfolio   PortfolioConfig   `yaml:"portfolio"`
	Audit       AuditConfig       `yaml:"audit"`
	Risk        risk.Limits       `yaml:"risk"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BrokerConfig defines broker adapter settings.
type BrokerConfig struct {
	Provider    string     `yaml:"provider"`     // paper | ibkr
	SlippageBps int        `yaml:"slippage_bps"` // paper simulator slippage
	IBKR        IBKRConfig `yaml:"ibkr"`
}

// IBKRConfig points the IBKR adapter at a TWS or gateway endpoint.
type IBKRConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID int    `yaml:"client_id"`
}

// RedisConfig defines the shared state store. An empty address selects the
// in-memory stores, which only make sense for a single paper instance.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PortfolioConfig points at the portfolio service. An empty URL selects the
// in-memory client.
type PortfolioConfig struct {
	URL string `yaml:"url"`
}

// AuditConfig defines the NDJSON audit sinks. Empty paths keep entries in
// memory only.
type AuditConfig struct {
	DecisionLog string `yaml:"decision_log"`
	TradeLog    string `yaml:"trade_log"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Risk limits default first so the file only has to name overrides.
	config := Config{
		Environment: EnvironmentConfig{Mode: "paper", LogLevel: "info"},
		Server:      ServerConfig{Port: 8080},
		Broker:      BrokerConfig{Provider: "paper", SlippageBps: 5},
		Risk:        risk.DefaultLimits(),
	}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be debug, info, warn, or error")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Broker.Provider != "paper" && c.Broker.Provider != "ibkr" {
		return fmt.Errorf("broker.provider must be 'paper' or 'ibkr'")
	}
	if c.Broker.SlippageBps < 0 {
		return fmt.Errorf("broker.slippage_bps must be >= 0")
	}
	if c.Broker.Provider == "ibkr" && c.Broker.IBKR.Host == "" {
		return fmt.Errorf("broker.ibkr.host is required for the ibkr provider")
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}

	// Live trading must not run on process-local state.
	if c.Environment.Mode == "live" {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required in live mode")
		}
		if c.Portfolio.URL == "" {
			return fmt.Errorf("portfolio.url is required in live mode")
		}
	}

	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return nil
}

// IsPaperTrading reports whether the gateway runs against the simulator.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}
