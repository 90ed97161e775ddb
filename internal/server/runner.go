// Package server wires the quote generator, UDP dispatcher, TCP
// subscription front-end, and admin API into one supervised process, and
// sequences their startup and shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mstreamio/quotestream/internal/adminapi"
	"github.com/mstreamio/quotestream/internal/config"
	"github.com/mstreamio/quotestream/internal/dispatcher"
	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/generator"
	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/ratelimit"
	"github.com/mstreamio/quotestream/internal/tcpfront"
	"github.com/mstreamio/quotestream/internal/tickers"
)

// Runner orchestrates quoteserver startup, configuration, and shutdown.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a Runner logging through logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run boots the generator, dispatcher, TCP front-end, and (if enabled) the
// admin API, then blocks until SIGINT/SIGTERM, tearing each down in turn:
// the admin API first (nothing depends on it), then the TCP front-end
// (stop admitting new subscribers), then the
// dispatcher (drain existing ones), then the generator (stop producing).
// Reversing this order risks the dispatcher reacting to a flood of
// spurious socket errors while the ping socket is mid-close.
func (r *Runner) Run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tickerList, err := tickers.LoadFile(cfg.Server.TickersFile)
	if err != nil {
		return err
	}

	stats := &dispatcher.Stats{}
	disp, err := dispatcher.New(dispatcher.Config{
		PingAddr:         cfg.Server.TCPAddr,
		KeepaliveTimeout: time.Duration(cfg.Server.KeepaliveTimeoutSecs) * time.Second,
		SendQueueDepth:   cfg.Server.SendQueueDepth,
		MaxSubscribers:   cfg.Server.MaxSubscribers,
	}, r.logger, stats)
	if err != nil {
		return fmt.Errorf("%w: starting dispatcher: %v", errs.ErrNetwork, err)
	}

	gen := generator.New(generator.Config{
		Tickers:       tickerList,
		InitialPrices: cfg.Server.InitialPrices,
		Interval:      time.Duration(cfg.Server.QuoteRateMs) * time.Millisecond,
	})
	genStop := make(chan struct{})

	go disp.Run()
	go gen.Run(disp.Quotes(), genStop)

	var limiter *ratelimit.PerIPLimiter
	if cfg.Server.ConnRatePerSec > 0 {
		limiter = ratelimit.NewPerIPLimiter(cfg.Server.ConnRatePerSec, cfg.Server.ConnRateBurst)
	}
	front, err := tcpfront.New(tcpfront.Config{
		Addr:    cfg.Server.TCPAddr,
		Limiter: limiter,
	}, func(req protocol.StreamRequest) error { return disp.AddClient(req) }, r.logger)
	if err != nil {
		close(genStop)
		disp.Shutdown()
		return fmt.Errorf("%w: starting tcp front-end: %v", errs.ErrNetwork, err)
	}
	frontDone := make(chan struct{})
	go func() {
		front.Run(ctx)
		close(frontDone)
	}()

	var admin *adminapi.Server
	if cfg.Admin.Enabled {
		admin, err = adminapi.New(cfg.Admin.Addr, stats, r.logger)
		if err != nil {
			r.logger.Warn("admin API disabled: bind failed", "error", err)
			admin = nil
		} else {
			go func() {
				if err := admin.ListenAndServe(); err != nil {
					r.logger.Warn("admin API stopped", "error", err)
				}
			}()
		}
	}

	r.logger.Info("quoteserver listening",
		"tcp_addr", cfg.Server.TCPAddr,
		"tickers", len(tickerList),
		"quote_rate_ms", cfg.Server.QuoteRateMs,
	)

	go r.logStats(ctx, stats)

	<-ctx.Done()
	r.logger.Info("shutdown signal received")

	if admin != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
		_ = admin.Shutdown(shutdownCtx)
		cancelShutdown()
	}

	<-frontDone
	disp.Shutdown()
	<-disp.Done()
	close(genStop)

	r.logger.Info("quoteserver stopped")
	return nil
}

// logStats periodically logs a dispatcher stats snapshot at debug level
// until ctx is done, giving an operator visibility without polling the
// admin API.
func (r *Runner) logStats(ctx context.Context, stats *dispatcher.Stats) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := stats.Snapshot()
			r.logger.Debug("dispatcher stats",
				"subscribers_active", snap.SubscribersActive,
				"quotes_generated", snap.QuotesGenerated,
				"quotes_delivered", snap.QuotesDelivered,
				"quotes_dropped", snap.QuotesDropped,
				"evictions", snap.Evictions,
				"pings_observed", snap.PingsObserved,
			)
		}
	}
}
