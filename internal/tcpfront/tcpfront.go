// Package tcpfront implements the subscription front-end: it accepts short
// TCP connections, reads and parses one STREAM line, forwards the parsed
// request for registration, and replies OK or ERR before closing.
package tcpfront

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/ratelimit"
)

const (
	readTimeout     = 5 * time.Second
	acceptPollEvery = 100 * time.Millisecond
)

// AddClientFunc registers a parsed subscription with the dispatcher. It
// returns an error when the dispatcher cannot take the subscription (it has
// stopped, its command queue is full, or its subscriber limit is reached);
// the front-end answers every such error with "ERR ... server unavailable".
// A malformed STREAM line is rejected by ParseStream (errs.ErrInvalidCommand)
// before AddClientFunc is ever called.
type AddClientFunc func(protocol.StreamRequest) error

// Config controls front-end construction.
type Config struct {
	Addr string
	// Limiter rejects connections from a source IP exceeding its budget.
	// Nil disables rate limiting.
	Limiter *ratelimit.PerIPLimiter
}

// Server accepts STREAM subscriptions and hands parsed requests to AddClient.
type Server struct {
	cfg       Config
	addClient AddClientFunc
	logger    *slog.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// New binds the listener. NetworkError if the port is unavailable.
func New(cfg Config, addClient AddClientFunc, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: binding tcp front-end: %v", errs.ErrNetwork, err)
	}
	return &Server{cfg: cfg, addClient: addClient, logger: logger, ln: ln}, nil
}

// Addr reports the bound listening address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run accepts connections until ctx is cancelled, polling for cancellation
// at acceptPollEvery so shutdown is observed promptly without busy-waiting.
// It returns once every spawned connection handler has finished.
func (s *Server) Run(ctx context.Context) {
	tcpLn, ok := s.ln.(*net.TCPListener)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		default:
		}

		if ok {
			_ = tcpLn.SetDeadline(time.Now().Add(acceptPollEvery))
		}
		conn, err := s.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				s.wg.Wait()
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Close stops accepting new connections; in-flight handlers are left to
// Run's final wg.Wait to drain.
func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	reqID := uuid.NewString()

	remoteAddr := conn.RemoteAddr()
	if s.cfg.Limiter != nil && !s.cfg.Limiter.Allow(remoteAddr) {
		s.logger.Debug("connection rejected by rate limiter", "request_id", reqID, "remote", remoteAddr)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	raw, err := bufio.NewReaderSize(conn, protocol.MaxLineSize).ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		s.logger.Info("rejected STREAM command", "request_id", reqID, "remote", remoteAddr, "error", "line too long")
		writeLine(conn, protocol.FormatErr(fmt.Errorf("%w: line exceeds %d bytes", errs.ErrInvalidCommand, protocol.MaxLineSize)))
		return
	}
	line := string(raw)
	if err != nil && line == "" {
		s.logger.Debug("connection closed before a line was read", "request_id", reqID, "error", err)
		return
	}

	req, err := protocol.ParseStream(line)
	if err != nil {
		s.logger.Info("rejected STREAM command", "request_id", reqID, "remote", remoteAddr, "error", err)
		writeLine(conn, protocol.FormatErr(err))
		return
	}

	if err := s.addClient(req); err != nil {
		s.logger.Warn("dispatcher unavailable", "request_id", reqID, "error", err)
		writeLine(conn, protocol.FormatErr(fmt.Errorf("%w: server unavailable", errs.ErrNetwork)))
		return
	}

	s.logger.Info("subscription accepted", "request_id", reqID, "remote", remoteAddr, "udp_addr", req.UDPAddr.String())
	writeLine(conn, protocol.FormatOK())
}

func writeLine(conn net.Conn, line string) {
	_ = conn.SetWriteDeadline(time.Now().Add(readTimeout))
	_, _ = conn.Write([]byte(line))
}
