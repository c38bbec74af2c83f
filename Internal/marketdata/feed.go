package marketdata

import (
	"context"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
)

// Quote is the per-symbol view for one tick. StaleTicks is 0 when the
// feed delivered this symbol on the current tick and grows by one for
// every tick the symbol was carried forward.
type Quote struct {
	Symbol     string
	Bar        types.Bar
	LastPrice  float64
	StaleTicks int
}

// Snapshot is everything the engine needs to evaluate one tick. It is
// assembled fully before tick processing begins; the engine never does
// I/O mid-tick.
type Snapshot struct {
	Time       time.Time
	IndexLevel float64
	IndexKnown bool
	Quotes     map[string]Quote
}

// Feed delivers snapshots in strictly increasing timestamp order.
// Replay feeds return io.EOF when the history is exhausted.
type Feed interface {
	Next(ctx context.Context) (Snapshot, error)
}

// UniverseProvider returns the ordered set of eligible symbols for a
// session date. Consumed once per session.
type UniverseProvider interface {
	Symbols(ctx context.Context, date time.Time) ([]string, error)
}

// StaticUniverse serves a fixed symbol list, used in replay mode and as
// a fallback when no screener output is available.
type StaticUniverse []string

func (u StaticUniverse) Symbols(_ context.Context, _ time.Time) ([]string, error) {
	out := make([]string, len(u))
	copy(out, u)
	return out, nil
}

// Book carries last-known prices forward across ticks and maintains the
// per-symbol staleness counters. A symbol missing from an update keeps
// its previous bar; its price is never fabricated.
type Book struct {
	quotes map[string]Quote
}

func NewBook() *Book {
	return &Book{quotes: make(map[string]Quote)}
}

// Apply merges one tick's raw updates into the book and returns the
// resulting quote set. Symbols absent from updates age by one tick.
func (b *Book) Apply(updates map[string]types.Bar) map[string]Quote {
	seen := make(map[string]bool, len(updates))

	for symbol, bar := range updates {
		b.quotes[symbol] = Quote{
			Symbol:    symbol,
			Bar:       bar,
			LastPrice: bar.Close,
		}
		seen[symbol] = true
	}

	for symbol, q := range b.quotes {
		if !seen[symbol] {
			q.StaleTicks++
			b.quotes[symbol] = q
		}
	}

	out := make(map[string]Quote, len(b.quotes))
	for symbol, q := range b.quotes {
		out[symbol] = q
	}
	return out
}

// Lookup returns the last-known quote for a symbol, if any.
func (b *Book) Lookup(symbol string) (Quote, bool) {
	q, ok := b.quotes[symbol]
	return q, ok
}
