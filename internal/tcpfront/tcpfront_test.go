package tcpfront

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstreamio/quotestream/internal/protocol"
	"github.com/mstreamio/quotestream/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, addClient AddClientFunc) (*Server, func()) {
	t.Helper()
	return startServerWithConfig(t, Config{Addr: "127.0.0.1:0"}, addClient)
}

func startServerWithConfig(t *testing.T, cfg Config, addClient AddClientFunc) (*Server, func()) {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	srv, err := New(cfg, addClient, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	return srv, func() {
		cancel()
		_ = srv.Close()
		<-done
	}
}

func sendLine(t *testing.T, addr net.Addr, line string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply
}

func TestServerAcceptsValidSubscription(t *testing.T) {
	var received protocol.StreamRequest
	srv, stop := startServer(t, func(req protocol.StreamRequest) error {
		received = req
		return nil
	})
	defer stop()

	reply := sendLine(t, srv.Addr(), "STREAM udp://127.0.0.1:9000 AAPL\n")
	assert.Equal(t, "OK\n", reply)
	assert.Contains(t, received.Tickers, "AAPL")
}

func TestServerRejectsInvalidCommand(t *testing.T) {
	srv, stop := startServer(t, func(protocol.StreamRequest) error { return nil })
	defer stop()

	reply := sendLine(t, srv.Addr(), "START udp://127.0.0.1:9000 AAPL\n")
	assert.True(t, strings.HasPrefix(reply, "ERR "))
	assert.Contains(t, reply, "STREAM")
}

func TestServerRejectsMalformedAddress(t *testing.T) {
	srv, stop := startServer(t, func(protocol.StreamRequest) error { return nil })
	defer stop()

	reply := sendLine(t, srv.Addr(), "STREAM udp://not-an-addr AAPL\n")
	assert.True(t, strings.HasPrefix(reply, "ERR "))
	assert.Contains(t, reply, "invalid UDP address")
}

func TestServerReportsUnavailableDispatcher(t *testing.T) {
	srv, stop := startServer(t, func(protocol.StreamRequest) error {
		return assert.AnError
	})
	defer stop()

	reply := sendLine(t, srv.Addr(), "STREAM udp://127.0.0.1:9000 AAPL\n")
	assert.Contains(t, reply, "server unavailable")
}

func TestServerRejectsConnectionOverRateLimit(t *testing.T) {
	limiter := ratelimit.NewPerIPLimiter(0, 0) // zero burst: every attempt is denied
	srv, stop := startServerWithConfig(t, Config{Limiter: limiter}, func(protocol.StreamRequest) error { return nil })
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n, "a rate-limited connection must receive zero bytes, not an ERR reply")
	assert.Error(t, err, "the server closes the connection outright")
}

func TestServerToleratesRepeatedFailedParses(t *testing.T) {
	srv, stop := startServer(t, func(protocol.StreamRequest) error { return nil })
	defer stop()

	for i := 0; i < 50; i++ {
		reply := sendLine(t, srv.Addr(), "BOGUS\n")
		assert.True(t, strings.HasPrefix(reply, "ERR "))
	}

	reply := sendLine(t, srv.Addr(), "STREAM udp://127.0.0.1:9000 AAPL\n")
	assert.Equal(t, "OK\n", reply)
}
