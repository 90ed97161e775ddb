// Package errs defines the sentinel error taxonomy shared by the quotestream
// server and client. Callers wrap a sentinel with fmt.Errorf("%w: ...", ...)
// to add operational context while keeping errors.Is checks working.
package errs

import "errors"

var (
	// ErrIO indicates a filesystem or network primitive failed.
	ErrIO = errors.New("io error")

	// ErrParse indicates malformed input from outside the trust boundary
	// (a server reply line, a quote datagram). A rejected STREAM line is
	// ErrInvalidCommand instead.
	ErrParse = errors.New("parse error")

	// ErrNetwork indicates a socket-level failure or a worker spawn failure
	// surfaced as a network condition.
	ErrNetwork = errors.New("network error")

	// ErrSerialization indicates a quote failed to encode; this should
	// never happen for well-formed StockQuote values.
	ErrSerialization = errors.New("serialization error")

	// ErrInvalidCommand indicates a syntactically or semantically rejected
	// STREAM line. Always surfaced to the peer as an ERR reply, never fatal.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrConfig indicates missing or invalid configuration, including an
	// empty ticker file.
	ErrConfig = errors.New("config error")
)
