// Package client implements the quotestream client: it subscribes to a
// ticker set over TCP, then receives quote datagrams and emits keepalive
// PINGs over a single shared UDP socket until shutdown.
package client

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/quote"
)

const (
	subscribeReadTimeout = 5 * time.Second
	receiveTimeout       = 200 * time.Millisecond
	receiveIdleSleep     = 50 * time.Millisecond
	pingSliceInterval    = 100 * time.Millisecond
	shutdownGrace        = 200 * time.Millisecond
)

// Config controls one client run.
type Config struct {
	ServerAddr   string
	UDPPort      int
	Tickers      []string
	PingInterval time.Duration
	// ReceiveQueueSize bounds the decoded-quote channel returned by Quotes.
	ReceiveQueueSize int
}

// Client owns one subscription's TCP handshake and its UDP socket.
type Client struct {
	cfg    Config
	logger *slog.Logger

	udpConn    *net.UDPConn
	serverAddr *net.UDPAddr

	quotes chan quote.StockQuote
}

// New dials the server, sends the STREAM command, and waits for a reply.
// On success the returned Client owns a bound UDP socket ready for
// Run. The advertised UDP endpoint is derived from the TCP connection's
// local IP paired with cfg.UDPPort; this assumes no NAT between client and
// server.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", cfg.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing server: %v", errs.ErrNetwork, err)
	}
	defer conn.Close()

	localIP, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return nil, fmt.Errorf("%w: resolving local address: %v", errs.ErrNetwork, err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(localIP, fmt.Sprintf("%d", cfg.UDPPort)))
	if err != nil {
		return nil, fmt.Errorf("%w: resolving udp bind address: %v", errs.ErrNetwork, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: binding udp socket: %v", errs.ErrNetwork, err)
	}

	advertised := net.JoinHostPort(localIP, fmt.Sprintf("%d", udpConn.LocalAddr().(*net.UDPAddr).Port))
	line := protocol.FormatStream(advertised, cfg.Tickers)

	if _, err := conn.Write([]byte(line)); err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("%w: sending STREAM command: %v", errs.ErrNetwork, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(subscribeReadTimeout))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("%w: reading server reply: %v", errs.ErrNetwork, err)
	}
	if err := protocol.ParseReply(reply); err != nil {
		udpConn.Close()
		return nil, err
	}

	serverHost, serverPort, err := net.SplitHostPort(cfg.ServerAddr)
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("%w: parsing server address: %v", errs.ErrNetwork, err)
	}
	pingAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(serverHost, serverPort))
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("%w: resolving server ping address: %v", errs.ErrNetwork, err)
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		udpConn:    udpConn,
		serverAddr: pingAddr,
		quotes:     make(chan quote.StockQuote, cfg.ReceiveQueueSize),
	}, nil
}

// Quotes returns the channel decoded quotes are pushed onto.
func (c *Client) Quotes() <-chan quote.StockQuote { return c.quotes }

// Run starts the receiver and ping tasks and blocks until ctx is done,
// then gives both tasks shutdownGrace to return before closing the socket.
func (c *Client) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.receiveLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		c.pingLoop(ctx)
	}()

	<-ctx.Done()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
	}
	close(c.quotes)
	_ = c.udpConn.Close()
}

func (c *Client) receiveLoop(ctx context.Context) {
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return
		}
		_ = c.udpConn.SetReadDeadline(time.Now().Add(receiveTimeout))
		n, err := c.udpConn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			time.Sleep(receiveIdleSleep)
			continue
		}
		q, err := quote.Decode(buf[:n])
		if err != nil {
			c.logger.Warn("malformed quote datagram", "error", err)
			continue
		}
		c.pushQuote(ctx, q)
	}
}

// pushQuote delivers q onto c.quotes, dropping the oldest pending quote
// first if the channel is full: ring-buffer discipline, so a slow
// consumer always sees the freshest price rather than stalling on stale
// ones.
func (c *Client) pushQuote(ctx context.Context, q quote.StockQuote) {
	select {
	case c.quotes <- q:
		return
	case <-ctx.Done():
		return
	default:
	}

	select {
	case <-c.quotes:
		c.logger.Debug("dropping oldest quote: receive queue full")
	default:
	}

	select {
	case c.quotes <- q:
	case <-ctx.Done():
	default:
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	nextPing := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}
		if time.Now().After(nextPing) {
			if _, err := c.udpConn.WriteToUDP([]byte(protocol.PingPayload), c.serverAddr); err != nil {
				c.logger.Warn("ping send failed", "error", err)
			}
			nextPing = time.Now().Add(c.cfg.PingInterval)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pingSliceInterval):
		}
	}
}

// ValidateTickers uppercases and checks every ticker is well-formed,
// mirroring the server's own parseTickers normalization.
func ValidateTickers(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		up := strings.ToUpper(strings.TrimSpace(t))
		if up == "" {
			continue
		}
		if !quote.ValidTicker(up) {
			return nil, fmt.Errorf("%w: invalid ticker %q", errs.ErrConfig, up)
		}
		out = append(out, up)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ticker list is empty", errs.ErrConfig)
	}
	return out, nil
}
