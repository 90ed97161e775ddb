package dispatcher

import (
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/quote"
)

// subscriber is one registered client, private to the dispatcher goroutine
// except for lastPingAt (updated by the liveness step, read by the
// eviction sweep — both run on the dispatcher goroutine in this
// implementation, but the field stays atomic to keep the invariant true
// even if a future change moves PING reading off the main loop).
//
// State machine: Created -> Active (register) -> Evicting (timeout, an
// enqueue failure, or dispatcher shutdown) -> Gone (sender worker joined).
type subscriber struct {
	id      uint64
	tickers map[string]struct{}
	udpAddr *net.UDPAddr
	timeout time.Duration

	outbound chan quote.StockQuote
	done     chan struct{}

	lastPingAt atomic.Int64 // nanoseconds since monoBase
	stale      atomic.Bool
}

// monoBase anchors lastPingAt so ping times are measured on the monotonic
// clock; a raw UnixNano value would lose the monotonic reading.
var monoBase = time.Now()

func newSubscriber(id uint64, req protocol.StreamRequest, queueDepth int, timeout time.Duration) *subscriber {
	s := &subscriber{
		id:       id,
		tickers:  req.Tickers,
		udpAddr:  req.UDPAddr,
		timeout:  timeout,
		outbound: make(chan quote.StockQuote, queueDepth),
		done:     make(chan struct{}),
	}
	s.touch()
	return s
}

func (s *subscriber) touch() {
	s.lastPingAt.Store(int64(time.Since(monoBase)))
}

func (s *subscriber) idleFor(now time.Time) time.Duration {
	return now.Sub(monoBase) - time.Duration(s.lastPingAt.Load())
}

func (s *subscriber) wants(ticker string) bool {
	_, ok := s.tickers[ticker]
	return ok
}

// enqueue attempts a non-blocking delivery. Backpressure policy: never
// block the dispatcher on a slow subscriber. A full queue marks the
// subscriber stale rather than waiting or dropping silently.
func (s *subscriber) enqueue(q quote.StockQuote) bool {
	select {
	case s.outbound <- q:
		return true
	default:
		s.stale.Store(true)
		return false
	}
}

// runSender owns a UDP socket connected to the subscriber's advertised
// endpoint and drains outbound until it is closed. Closing outbound is
// the cancellation mechanism: no extra timeout polling is needed since a
// closed channel read returns immediately.
func runSender(s *subscriber, logger *slog.Logger) {
	defer close(s.done)

	conn, err := net.DialUDP("udp", nil, s.udpAddr)
	if err != nil {
		logger.Warn("sender worker failed to open UDP socket", "subscriber", s.id, "error", err)
		return
	}
	defer conn.Close()

	for q := range s.outbound {
		b, err := quote.Encode(q)
		if err != nil {
			logger.Warn("dropping quote that failed to encode", "subscriber", s.id, "ticker", q.Ticker, "error", err)
			continue
		}
		if _, err := conn.Write(b); err != nil {
			logger.Debug("send failed, continuing", "subscriber", s.id, "error", err)
		}
	}
}
