// Package quote defines the StockQuote wire type shared by the quotestream
// server and client, and its JSON codec.
//
// Wire format: one compact JSON object per UDP datagram, field order fixed
// as ticker, price, volume, timestamp. Field order is a
// product of Go's struct-field encoding order, not an explicit MarshalJSON.
package quote

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/mstreamio/quotestream/internal/errs"
)

// MaxTickerLength is the longest accepted ticker symbol.
const MaxTickerLength = 16

// MinPrice is the floor every quote price is clamped to.
const MinPrice = 0.01

var tickerPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// StockQuote is the unit of delivery: one simulated market observation.
type StockQuote struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	Volume    uint32  `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// ValidTicker reports whether s is a well-formed ticker symbol: non-empty,
// uppercase ASCII, at most MaxTickerLength characters, drawn from [A-Z0-9].
func ValidTicker(s string) bool {
	if s == "" || len(s) > MaxTickerLength {
		return false
	}
	return tickerPattern.MatchString(s)
}

// Validate checks that q satisfies the StockQuote invariants.
func (q StockQuote) Validate() error {
	if !ValidTicker(q.Ticker) {
		return fmt.Errorf("%w: invalid ticker %q", errs.ErrSerialization, q.Ticker)
	}
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price < MinPrice {
		return fmt.Errorf("%w: invalid price %v for %s", errs.ErrSerialization, q.Price, q.Ticker)
	}
	return nil
}

// Encode serializes q to its compact JSON wire form.
func Encode(q StockQuote) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	return b, nil
}

// Decode parses a single StockQuote from a UDP datagram payload.
func Decode(b []byte) (StockQuote, error) {
	var q StockQuote
	if err := json.Unmarshal(b, &q); err != nil {
		return StockQuote{}, fmt.Errorf("%w: %v", errs.ErrParse, err)
	}
	if !ValidTicker(q.Ticker) {
		return StockQuote{}, fmt.Errorf("%w: invalid ticker %q", errs.ErrParse, q.Ticker)
	}
	return q, nil
}

// ClampPrice rounds p to two decimals (half away from zero) and floors it
// at MinPrice. Documented resolution of the generator's rounding
// Open Question: half-away-from-zero, not half-to-even.
func ClampPrice(p float64) float64 {
	rounded := math.Round(p*100) / 100
	if rounded < MinPrice {
		return MinPrice
	}
	return rounded
}
