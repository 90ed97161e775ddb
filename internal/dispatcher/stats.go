package dispatcher

import "sync/atomic"

// Stats holds atomic counters observed by the admin HTTP surface. It is
// never read by the dispatcher's own control flow — purely observational
// bookkeeping, updated by the event loop and read concurrently by the
// admin server's /stats handler.
type Stats struct {
	subscribersActive atomic.Int64
	quotesGenerated   atomic.Uint64
	quotesDelivered   atomic.Uint64
	quotesDropped     atomic.Uint64
	evictions         atomic.Uint64
	pingsObserved     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to marshal as JSON.
type StatsSnapshot struct {
	SubscribersActive int64  `json:"subscribers_active"`
	QuotesGenerated   uint64 `json:"quotes_generated"`
	QuotesDelivered   uint64 `json:"quotes_delivered"`
	QuotesDropped     uint64 `json:"quotes_dropped"`
	Evictions         uint64 `json:"evictions"`
	PingsObserved     uint64 `json:"pings_observed"`
}

// Snapshot returns a consistent-enough point-in-time read of all counters.
// Individual fields may be read at slightly different instants; this is
// acceptable for an observability surface, never for control decisions.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		SubscribersActive: s.subscribersActive.Load(),
		QuotesGenerated:   s.quotesGenerated.Load(),
		QuotesDelivered:   s.quotesDelivered.Load(),
		QuotesDropped:     s.quotesDropped.Load(),
		Evictions:         s.evictions.Load(),
		PingsObserved:     s.pingsObserved.Load(),
	}
}
