// Package generator produces the periodic random-walk quote stream shared
// by every subscriber: one tick over the configured ticker universe,
// a new price and volume per ticker, then a sleep before the next tick.
package generator

import (
	"math/rand"
	"time"

	"github.com/mstreamio/quotestream/internal/helpers"
	"github.com/mstreamio/quotestream/internal/quote"
)

const defaultInitialPrice = 100.00

// popular tickers draw volume from a higher range than the rest of the
// universe; membership is fixed rather than configurable.
var popular = map[string]struct{}{
	"AAPL": {},
	"MSFT": {},
	"TSLA": {},
}

func isPopular(ticker string) bool {
	_, ok := popular[ticker]
	return ok
}

// Config controls one generator run.
type Config struct {
	// Tickers is the universe, iterated in this order every tick.
	Tickers []string
	// InitialPrices overrides the default starting price per ticker.
	InitialPrices map[string]float64
	// Interval is the sleep between ticks.
	Interval time.Duration
}

// Generator holds the per-ticker walk state (the previous rounded price)
// across ticks. Not safe for concurrent use; Run owns it exclusively.
type Generator struct {
	cfg    Config
	prices map[string]float64
	rng    *rand.Rand
}

// New builds a Generator seeded with cfg.InitialPrices, falling back to
// defaultInitialPrice for any ticker with no override.
func New(cfg Config) *Generator {
	prices := make(map[string]float64, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		if p, ok := cfg.InitialPrices[t]; ok {
			prices[t] = p
		} else {
			prices[t] = defaultInitialPrice
		}
	}
	return &Generator{
		cfg:    cfg,
		prices: prices,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run emits quotes onto out once per tick until stop is closed. Each
// send races against stop so a consumer that vanishes mid-tick is
// noticed immediately rather than after a full interval.
func (g *Generator) Run(out chan<- quote.StockQuote, stop <-chan struct{}) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	if !g.tick(out, stop) {
		return
	}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.tick(out, stop) {
				return
			}
		}
	}
}

// tick produces one quote per configured ticker. It returns false if stop
// fires while trying to deliver, signaling Run to terminate immediately.
func (g *Generator) tick(out chan<- quote.StockQuote, stop <-chan struct{}) bool {
	for _, t := range g.cfg.Tickers {
		q := g.next(t)
		select {
		case out <- q:
		case <-stop:
			return false
		}
	}
	return true
}

// next advances ticker t's price one random-walk step and samples a fresh
// volume, returning the resulting quote. The rounded price becomes the
// new basis for the following tick.
func (g *Generator) next(t string) quote.StockQuote {
	previous := g.prices[t]
	delta := (g.rng.Float64()*2 - 1) * 0.02 // uniform in (-0.02, 0.02)
	price := quote.ClampPrice(previous * (1 + delta))
	g.prices[t] = price

	var volume uint32
	if isPopular(t) {
		volume = helpers.ClampIntToUint32(1000 + g.rng.Intn(5001))
	} else {
		volume = helpers.ClampIntToUint32(100 + g.rng.Intn(1001))
	}

	return quote.StockQuote{
		Ticker:    t,
		Price:     price,
		Volume:    volume,
		Timestamp: time.Now().UTC().UnixMilli(),
	}
}
