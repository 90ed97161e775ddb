package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// DispatcherStats mirrors dispatcher.StatsSnapshot for JSON exposure, kept
// separate so the API response shape doesn't couple to dispatcher internals.
type DispatcherStats struct {
	SubscribersActive int64  `json:"subscribers_active"`
	QuotesGenerated   uint64 `json:"quotes_generated"`
	QuotesDelivered   uint64 `json:"quotes_delivered"`
	QuotesDropped     uint64 `json:"quotes_dropped"`
	Evictions         uint64 `json:"evictions"`
	PingsObserved     uint64 `json:"pings_observed"`
}

// ServerStatsResponse contains server runtime statistics.
type ServerStatsResponse struct {
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     time.Time       `json:"start_time"`
	CPU           CPUStats        `json:"cpu"`
	Memory        MemoryStats     `json:"memory"`
	Dispatcher    DispatcherStats `json:"dispatcher"`
}
