package client

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mstreamio/quotestream/internal/config"
	"github.com/mstreamio/quotestream/internal/tickers"
)

// Supervisor parses configuration, subscribes, and drives the client until
// a shutdown signal arrives.
type Supervisor struct {
	logger *slog.Logger
}

// NewSupervisor creates a Supervisor logging through logger.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Run loads the ticker file, subscribes to cfg.Client.ServerAddr, and logs
// every received quote until SIGINT/SIGTERM.
func (s *Supervisor) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rawTickers, err := tickers.LoadFile(cfg.Client.TickersFile)
	if err != nil {
		return err
	}
	tickerList, err := ValidateTickers(rawTickers)
	if err != nil {
		return err
	}

	c, err := New(Config{
		ServerAddr:       cfg.Client.ServerAddr,
		UDPPort:          cfg.Client.UDPPort,
		Tickers:          tickerList,
		PingInterval:     time.Duration(cfg.Client.PingIntervalSec) * time.Second,
		ReceiveQueueSize: cfg.Client.ReceiveQueueSize,
	}, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("subscribed", "server_addr", cfg.Client.ServerAddr, "tickers", tickerList)

	runDone := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(runDone)
	}()

	for q := range c.Quotes() {
		s.logger.Info("quote received", "ticker", q.Ticker, "price", q.Price, "volume", q.Volume, "timestamp", q.Timestamp)
	}

	<-runDone
	s.logger.Info("quoteclient stopped")
	return nil
}
