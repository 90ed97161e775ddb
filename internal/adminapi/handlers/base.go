// Package handlers implements the admin API's HTTP handlers.
package handlers

import (
	"log/slog"
	"time"

	"github.com/mstreamio/quotestream/internal/dispatcher"
)

// Handler contains dependencies shared by every admin API endpoint.
type Handler struct {
	logger    *slog.Logger
	stats     *dispatcher.Stats
	startTime time.Time
}

// New creates a Handler reading live counters from stats.
func New(stats *dispatcher.Stats, logger *slog.Logger) *Handler {
	return &Handler{stats: stats, logger: logger, startTime: time.Now()}
}
