// Package tickers loads the ticker universe a quotestream server or client
// is configured with: a plain text file, one symbol per line.
package tickers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mstreamio/quotestream/internal/errs"
)

// LoadFile reads path and returns its tickers in file order, normalized
// to uppercase. Blank lines are skipped; duplicates are preserved (the
// caller decides whether repetition is meaningful). A file that yields no
// tickers at all is a config error.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening ticker file: %v", errs.ErrIO, err)
	}
	defer f.Close()

	tickers, err := ParseReader(f)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: ticker file %q contains no symbols", errs.ErrConfig, path)
	}
	return tickers, nil
}

// ParseReader reads tickers from r, one per line, skipping blank lines and
// uppercasing each symbol. It does not reject malformed symbols; that is
// the caller's job via quote.ValidTicker, since the accepted alphabet may
// differ between a ticker file and the wire protocol.
func ParseReader(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading ticker file: %v", errs.ErrIO, err)
	}
	return out, nil
}
