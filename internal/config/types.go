// Package config provides configuration loading for quotestream using Viper.
// Configuration is loaded from TOML files with automatic environment
// variable binding.
//
// Environment variables use the QUOTESTREAM_ prefix and underscore-separated
// keys:
//   - QUOTESTREAM_SERVER_TCP_ADDR -> server.tcp_addr
//   - QUOTESTREAM_SERVER_QUOTE_RATE_MS -> server.quote_rate_ms
//   - QUOTESTREAM_CLIENT_SERVER_ADDR -> client.server_addr
package config

import (
	"os"
	"strings"
)

// ServerConfig contains quoteserver settings.
type ServerConfig struct {
	TCPAddr              string             `mapstructure:"tcp_addr"`
	TickersFile          string             `mapstructure:"tickers_file"`
	QuoteRateMs          int                `mapstructure:"quote_rate_ms"`
	KeepaliveTimeoutSecs int                `mapstructure:"keepalive_timeout_secs"`
	InitialPrices        map[string]float64 `mapstructure:"initial_prices"`
	MaxSubscribers       int                `mapstructure:"max_subscribers"`
	SendQueueDepth       int                `mapstructure:"send_queue_depth"`
	ConnRatePerSec       float64            `mapstructure:"conn_rate_per_sec"`
	ConnRateBurst        int                `mapstructure:"conn_rate_burst"`
}

// ClientConfig contains quoteclient settings.
type ClientConfig struct {
	ServerAddr       string `mapstructure:"server_addr"`
	UDPPort          int    `mapstructure:"udp_port"`
	TickersFile      string `mapstructure:"tickers_file"`
	PingIntervalSec  int    `mapstructure:"ping_interval_sec"`
	ReceiveQueueSize int    `mapstructure:"receive_queue_size"`
}

// LoggingConfig contains logging settings, mirrored on both binaries.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Structured bool   `mapstructure:"structured"`
}

// AdminConfig controls the optional admin HTTP surface exposed by
// quoteserver (health checks and stats, never quote traffic).
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the root configuration structure, shared by both binaries; each
// reads only the sections relevant to it.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Logging LoggingConfig `mapstructure:"logging"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("QUOTESTREAM_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a TOML file with environment variable
// overrides. This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (QUOTESTREAM_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
