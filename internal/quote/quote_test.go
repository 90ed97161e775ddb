package quote_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstreamio/quotestream/internal/quote"
)

func TestValidTicker(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "simple", in: "AAPL", want: true},
		{name: "digits allowed", in: "BRK2", want: true},
		{name: "empty", in: "", want: false},
		{name: "lowercase rejected", in: "aapl", want: false},
		{name: "too long", in: "ABCDEFGHIJKLMNOPQ", want: false},
		{name: "max length ok", in: "ABCDEFGHIJKLMNOP", want: true},
		{name: "punctuation rejected", in: "AA.PL", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quote.ValidTicker(tt.in))
		})
	}
}

func TestEncodeFieldOrderAndCompactness(t *testing.T) {
	q := quote.StockQuote{Ticker: "AAPL", Price: 150.25, Volume: 3500, Timestamp: 1699564800000}
	b, err := quote.Encode(q)
	require.NoError(t, err)
	assert.Equal(t, `{"ticker":"AAPL","price":150.25,"volume":3500,"timestamp":1699564800000}`, string(b))
}

func TestRoundTrip(t *testing.T) {
	in := quote.StockQuote{Ticker: "TSLA", Price: 241.07, Volume: 999, Timestamp: 1735689600000}
	b, err := quote.Encode(in)
	require.NoError(t, err)

	out, err := quote.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := quote.Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = quote.Decode([]byte(`{"ticker":"aapl","price":1,"volume":1,"timestamp":1}`))
	assert.Error(t, err, "lowercase ticker must be rejected on decode")
}

func TestEncodeRejectsInvalidPrice(t *testing.T) {
	_, err := quote.Encode(quote.StockQuote{Ticker: "AAPL", Price: 0, Volume: 1, Timestamp: 1})
	assert.Error(t, err)
}

func TestClampPrice(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "rounds half away from zero up", in: 100.005, want: 100.01},
		{name: "floors at minimum", in: 0.0, want: quote.MinPrice},
		{name: "negative floors at minimum", in: -5, want: quote.MinPrice},
		{name: "already exact", in: 99.99, want: 99.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quote.ClampPrice(tt.in), 1e-9)
		})
	}
}
