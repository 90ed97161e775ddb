// Package dispatcher owns the subscriber directory and drives quote fan-out:
// it filters each generated quote by subscriber ticker set, serializes and
// transmits per-subscriber UDP datagrams, tracks liveness via a shared PING
// socket, and evicts subscribers that go quiet.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/pool"
	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/quote"
)

const (
	pingBufferSize   = 16
	housekeepingTick = 100 * time.Millisecond
	pingSocketRcvBuf = 1 << 20 // 1 MiB
)

// pingBufPool reuses the small read buffer readPings drains the shared PING
// socket into; housekeeping fires every housekeepingTick regardless of
// traffic, so the alternative is a fresh allocation on every tick forever.
var pingBufPool = pool.New(func() *[]byte {
	buf := make([]byte, pingBufferSize)
	return &buf
})

// Config controls dispatcher construction.
type Config struct {
	// PingAddr is the server's advertised UDP endpoint: the single shared
	// socket all subscribers' PING datagrams arrive on.
	PingAddr string
	// KeepaliveTimeout is how long a subscriber may go without a PING
	// before eviction.
	KeepaliveTimeout time.Duration
	// SendQueueDepth bounds each subscriber's outbound channel.
	SendQueueDepth int
	// MaxSubscribers caps the directory size; zero means unbounded.
	MaxSubscribers int
}

// Dispatcher is the server's fan-out engine. The directory and all its
// mutations live exclusively on the goroutine running Run; external
// callers only ever submit commands.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
	stats  *Stats

	cmds   chan command
	quotes chan quote.StockQuote

	pingConn *net.UDPConn

	directory map[uint64]*subscriber
	nextID    uint64

	done chan struct{}
}

type command interface{ isCommand() }

type addClientCmd struct {
	req   protocol.StreamRequest
	reply chan error
}

func (addClientCmd) isCommand() {}

type shutdownCmd struct{}

func (shutdownCmd) isCommand() {}

// New builds a Dispatcher and binds its shared PING-receiving socket. The
// socket's receive buffer is raised via SO_RCVBUF with
// golang.org/x/sys/unix inside a net.ListenConfig.Control callback; this
// is the only socket in the server that gets option tuning, since exactly
// one shared PING socket exists (no per-core fan-out).
func New(cfg Config, logger *slog.Logger, stats *Stats) (*Dispatcher, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, pingSocketRcvBuf)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", cfg.PingAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: binding PING socket: %v", errs.ErrNetwork, err)
	}

	return &Dispatcher{
		cfg:       cfg,
		logger:    logger,
		stats:     stats,
		cmds:      make(chan command, 16),
		quotes:    make(chan quote.StockQuote, 256),
		pingConn:  pc.(*net.UDPConn),
		directory: make(map[uint64]*subscriber),
		done:      make(chan struct{}),
	}, nil
}

// Quotes returns the channel the generator sends quotes on.
func (d *Dispatcher) Quotes() chan<- quote.StockQuote { return d.quotes }

// Done closes once Run has fully exited and every subscriber has been
// drained, letting a supervisor sequence the next teardown step.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// AddClient submits a parsed subscription and waits for the dispatcher's
// registration result: nil once the subscriber is in the directory, or an
// error if the command queue is full, the subscriber limit is reached, or
// Run has already exited.
func (d *Dispatcher) AddClient(req protocol.StreamRequest) error {
	reply := make(chan error, 1)
	select {
	case d.cmds <- addClientCmd{req: req, reply: reply}:
		select {
		case err := <-reply:
			return err
		case <-d.done:
			select {
			case err := <-reply:
				return err
			default:
			}
			return fmt.Errorf("%w: dispatcher stopped", errs.ErrNetwork)
		}
	default:
		return fmt.Errorf("%w: dispatcher command queue full", errs.ErrNetwork)
	}
}

// Shutdown requests an orderly dispatcher stop: Run drops every
// subscriber's outbound channel, waits for each sender worker to
// terminate, then returns.
func (d *Dispatcher) Shutdown() {
	d.cmds <- shutdownCmd{}
}

// Run drives the event loop until Shutdown is requested or the quotes
// channel is closed by the generator. It alternates between command
// drain, quote delivery, and periodic liveness/eviction housekeeping,
// mirroring the four-part loop: commands and quotes are handled as soon
// as they're available, housekeeping runs on a fixed tick so a quiet
// system still notices dead subscribers.
func (d *Dispatcher) Run() {
	ticker := time.NewTicker(housekeepingTick)
	defer ticker.Stop()
	defer d.pingConn.Close()
	defer close(d.done)

	for {
		select {
		case cmd, ok := <-d.cmds:
			if !ok {
				d.drainAll()
				return
			}
			switch c := cmd.(type) {
			case addClientCmd:
				c.reply <- d.register(c.req)
			case shutdownCmd:
				d.drainAll()
				return
			}

		case q, ok := <-d.quotes:
			if !ok {
				d.drainAll()
				return
			}
			d.stats.quotesGenerated.Add(1)
			d.deliver(q)

		case <-ticker.C:
			d.readPings()
			d.sweep()
		}
	}
}

func (d *Dispatcher) register(req protocol.StreamRequest) error {
	if d.cfg.MaxSubscribers > 0 && len(d.directory) >= d.cfg.MaxSubscribers {
		return fmt.Errorf("%w: subscriber limit reached", errs.ErrNetwork)
	}
	d.nextID++
	id := d.nextID
	sub := newSubscriber(id, req, d.cfg.SendQueueDepth, d.cfg.KeepaliveTimeout)
	go runSender(sub, d.logger)
	d.directory[id] = sub
	d.stats.subscribersActive.Add(1)
	d.logger.Info("subscriber registered", "subscriber", id, "udp_addr", req.UDPAddr.String())
	return nil
}

func (d *Dispatcher) deliver(q quote.StockQuote) {
	for _, sub := range d.directory {
		if !sub.wants(q.Ticker) {
			continue
		}
		if sub.enqueue(q) {
			d.stats.quotesDelivered.Add(1)
		} else {
			d.stats.quotesDropped.Add(1)
		}
	}
}

// readPings drains every datagram currently waiting on the shared PING
// socket without blocking the event loop: each read uses a deadline a
// hair in the future rather than no deadline at all, so the loop always
// returns control to the select above within one housekeeping tick.
func (d *Dispatcher) readPings() {
	bufPtr := pingBufPool.Get()
	defer pingBufPool.Put(bufPtr)
	buf := *bufPtr

	for {
		if err := d.pingConn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		n, addr, err := d.pingConn.ReadFromUDP(buf)
		if err != nil {
			return // timeout or transient error: nothing more to read this tick
		}
		if n == len(protocol.PingPayload) && string(buf[:n]) == protocol.PingPayload {
			d.observePing(addr)
		}
	}
}

func (d *Dispatcher) observePing(addr *net.UDPAddr) {
	for _, sub := range d.directory {
		if sub.udpAddr.IP.Equal(addr.IP) && sub.udpAddr.Port == addr.Port {
			sub.touch()
			d.stats.pingsObserved.Add(1)
			return
		}
	}
}

func (d *Dispatcher) sweep() {
	now := time.Now()
	for id, sub := range d.directory {
		if sub.stale.Load() || sub.idleFor(now) > sub.timeout {
			d.evict(id, sub)
		}
	}
}

func (d *Dispatcher) evict(id uint64, sub *subscriber) {
	close(sub.outbound)
	<-sub.done
	delete(d.directory, id)
	d.stats.subscribersActive.Add(-1)
	d.stats.evictions.Add(1)
	d.logger.Info("subscriber evicted", "subscriber", id)
}

// drainAll evicts every remaining subscriber in parallel so shutdown time
// is bounded by the slowest sender worker, not the sum of all of them.
func (d *Dispatcher) drainAll() {
	var wg sync.WaitGroup
	for id, sub := range d.directory {
		wg.Add(1)
		go func(id uint64, sub *subscriber) {
			defer wg.Done()
			close(sub.outbound)
			<-sub.done
		}(id, sub)
	}
	wg.Wait()
	d.directory = make(map[uint64]*subscriber)
	d.stats.subscribersActive.Store(0)
}
