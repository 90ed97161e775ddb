// Package protocol implements the line-oriented subscription grammar
// implemented by the client-to-server STREAM command and the
// server's OK/ERR reply, plus the 4-byte PING keepalive payload.
package protocol

import (
	"fmt"
	"net"
	"strings"

	"github.com/mstreamio/quotestream/internal/errs"
	"github.com/mstreamio/quotestream/internal/quote"
)

// MaxLineSize bounds a single STREAM line read by the TCP front-end.
const MaxLineSize = 4096

// PingPayload is the exact byte sequence a client sends as its keepalive.
const PingPayload = "PING"

// StreamRequest is a parsed subscription: the UDP endpoint the server
// should deliver matching quotes to, and the set of tickers of interest.
type StreamRequest struct {
	UDPAddr *net.UDPAddr
	Tickers map[string]struct{}
}

// ParseStream parses one STREAM command line (without its trailing
// newline) per the grammar:
//
//	STREAM udp://<IP>:<PORT> <TICKER>[,<TICKER>]*
//
// Tickers are comma-separated, trimmed, uppercased, and de-duplicated into
// a set; empty tokens are discarded. The ticker list must be non-empty
// after normalization. Returns errs.ErrInvalidCommand on any violation.
func ParseStream(line string) (StreamRequest, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "STREAM" {
		return StreamRequest{}, fmt.Errorf("%w: expected STREAM udp://<ip>:<port> <tickers>", errs.ErrInvalidCommand)
	}

	rawAddr := fields[1]
	rawTickers := strings.Join(fields[2:], " ")

	udpAddr, err := parseUDPAddr(rawAddr)
	if err != nil {
		return StreamRequest{}, err
	}

	tickers, err := parseTickers(rawTickers)
	if err != nil {
		return StreamRequest{}, err
	}

	return StreamRequest{UDPAddr: udpAddr, Tickers: tickers}, nil
}

func parseUDPAddr(raw string) (*net.UDPAddr, error) {
	const prefix = "udp://"
	if !strings.HasPrefix(raw, prefix) {
		return nil, fmt.Errorf("%w: missing udp:// prefix", errs.ErrInvalidCommand)
	}
	hostport := strings.TrimPrefix(raw, prefix)

	addr, err := net.ResolveUDPAddr("udp", hostport)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid UDP address: %v", errs.ErrInvalidCommand, err)
	}
	return addr, nil
}

func parseTickers(raw string) (map[string]struct{}, error) {
	parts := strings.Split(raw, ",")
	tickers := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		t := strings.ToUpper(strings.TrimSpace(p))
		if t == "" {
			continue
		}
		if !quote.ValidTicker(t) {
			return nil, fmt.Errorf("%w: invalid ticker %q", errs.ErrInvalidCommand, t)
		}
		tickers[t] = struct{}{}
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: ticker list is empty", errs.ErrInvalidCommand)
	}
	return tickers, nil
}

// FormatOK renders the server's success reply.
func FormatOK() string {
	return "OK\n"
}

// FormatErr renders the server's failure reply, embedding a human-readable
// reason derived from err.
func FormatErr(err error) string {
	return fmt.Sprintf("ERR %s\n", err.Error())
}

// ParseReply parses a single server reply line ("OK" or "ERR <reason>").
// Returns a nil error for "OK"; otherwise an error wrapping the reason.
func ParseReply(line string) error {
	line = strings.TrimSpace(line)
	if line == "OK" {
		return nil
	}
	if reason, ok := strings.CutPrefix(line, "ERR "); ok {
		return fmt.Errorf("%w: %s", errs.ErrInvalidCommand, reason)
	}
	return fmt.Errorf("%w: unexpected reply %q", errs.ErrParse, line)
}

// FormatStream renders a STREAM command line (including trailing newline)
// for the given advertised UDP endpoint and ticker list.
func FormatStream(udpAddr string, tickers []string) string {
	return fmt.Sprintf("STREAM udp://%s %s\n", udpAddr, strings.Join(tickers, ","))
}
