// Package config provides configuration loading and validation for
// quotestream.
//
// The TOML file is chosen by the -config flag of cmd/quoteserver and
// cmd/quoteclient (or QUOTESTREAM_CONFIG); no other flag overrides a value.
// Values are resolved with the following priority (highest to lowest):
//  1. Environment variables (QUOTESTREAM_* prefix)
//  2. TOML config file (if one is given)
//  3. Hardcoded defaults
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mstreamio/quotestream/internal/errs"
)

func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QUOTESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading config file: %v", errs.ErrConfig, err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.tcp_addr", "0.0.0.0:7878")
	v.SetDefault("server.tickers_file", "tickers.txt")
	v.SetDefault("server.quote_rate_ms", 1000)
	v.SetDefault("server.keepalive_timeout_secs", 5)
	v.SetDefault("server.initial_prices", map[string]float64{})
	v.SetDefault("server.max_subscribers", 1024)
	v.SetDefault("server.send_queue_depth", 64)
	v.SetDefault("server.conn_rate_per_sec", 5.0)
	v.SetDefault("server.conn_rate_burst", 10)

	// Client defaults
	v.SetDefault("client.server_addr", "127.0.0.1:7878")
	v.SetDefault("client.udp_port", 0)
	v.SetDefault("client.tickers_file", "tickers.txt")
	v.SetDefault("client.ping_interval_sec", 2)
	v.SetDefault("client.receive_queue_size", 256)

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)

	// Admin API defaults; disabled and bound to localhost for safety.
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.addr", "127.0.0.1:8080")
}

func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	loadServerConfig(v, cfg)
	loadClientConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadAdminConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadServerConfig(v *viper.Viper, cfg *Config) {
	cfg.Server.TCPAddr = v.GetString("server.tcp_addr")
	cfg.Server.TickersFile = v.GetString("server.tickers_file")
	cfg.Server.QuoteRateMs = v.GetInt("server.quote_rate_ms")
	cfg.Server.KeepaliveTimeoutSecs = v.GetInt("server.keepalive_timeout_secs")
	cfg.Server.MaxSubscribers = v.GetInt("server.max_subscribers")
	cfg.Server.SendQueueDepth = v.GetInt("server.send_queue_depth")
	cfg.Server.ConnRatePerSec = v.GetFloat64("server.conn_rate_per_sec")
	cfg.Server.ConnRateBurst = v.GetInt("server.conn_rate_burst")

	cfg.Server.InitialPrices = make(map[string]float64)
	for ticker, raw := range v.GetStringMap("server.initial_prices") {
		if price, ok := raw.(float64); ok {
			cfg.Server.InitialPrices[strings.ToUpper(ticker)] = price
		}
	}
}

func loadClientConfig(v *viper.Viper, cfg *Config) {
	cfg.Client.ServerAddr = v.GetString("client.server_addr")
	cfg.Client.UDPPort = v.GetInt("client.udp_port")
	cfg.Client.TickersFile = v.GetString("client.tickers_file")
	cfg.Client.PingIntervalSec = v.GetInt("client.ping_interval_sec")
	cfg.Client.ReceiveQueueSize = v.GetInt("client.receive_queue_size")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
}

func loadAdminConfig(v *viper.Viper, cfg *Config) {
	cfg.Admin.Enabled = v.GetBool("admin.enabled")
	cfg.Admin.Addr = v.GetString("admin.addr")
}

func normalizeConfig(cfg *Config) error {
	if cfg.Server.TCPAddr == "" {
		return fmt.Errorf("%w: server.tcp_addr must be set", errs.ErrConfig)
	}
	if cfg.Server.TickersFile == "" {
		return fmt.Errorf("%w: server.tickers_file must be set", errs.ErrConfig)
	}
	if cfg.Server.QuoteRateMs <= 0 {
		return fmt.Errorf("%w: server.quote_rate_ms must be > 0", errs.ErrConfig)
	}
	if cfg.Server.KeepaliveTimeoutSecs <= 0 {
		return fmt.Errorf("%w: server.keepalive_timeout_secs must be > 0", errs.ErrConfig)
	}
	if cfg.Server.MaxSubscribers <= 0 {
		return fmt.Errorf("%w: server.max_subscribers must be > 0", errs.ErrConfig)
	}
	if cfg.Server.SendQueueDepth <= 0 {
		return fmt.Errorf("%w: server.send_queue_depth must be > 0", errs.ErrConfig)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}

	if cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("%w: admin.addr must be set when admin.enabled is true", errs.ErrConfig)
	}

	return nil
}
