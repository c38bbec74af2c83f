package marketdata

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
)

func bar(ts time.Time, close float64) types.Bar {
	return types.Bar{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1000}
}

func TestBook_CarriesQuotesForwardWithStaleness(t *testing.T) {
	b := NewBook()
	t0 := time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC)

	quotes := b.Apply(map[string]types.Bar{
		"AAA": bar(t0, 100),
		"BBB": bar(t0, 200),
	})
	if quotes["AAA"].StaleTicks != 0 || quotes["BBB"].StaleTicks != 0 {
		t.Fatal("fresh quotes should start at zero staleness")
	}

	// BBB goes silent for two ticks.
	quotes = b.Apply(map[string]types.Bar{"AAA": bar(t0.Add(time.Minute), 101)})
	quotes = b.Apply(map[string]types.Bar{"AAA": bar(t0.Add(2*time.Minute), 102)})

	if quotes["AAA"].StaleTicks != 0 {
		t.Errorf("AAA staleness = %d, want 0", quotes["AAA"].StaleTicks)
	}
	if quotes["BBB"].StaleTicks != 2 {
		t.Errorf("BBB staleness = %d, want 2", quotes["BBB"].StaleTicks)
	}
	if quotes["BBB"].LastPrice != 200 {
		t.Errorf("BBB carried price = %.2f, want the last real close 200", quotes["BBB"].LastPrice)
	}

	// BBB returns: staleness resets, price updates.
	quotes = b.Apply(map[string]types.Bar{"BBB": bar(t0.Add(3*time.Minute), 205)})
	if quotes["BBB"].StaleTicks != 0 || quotes["BBB"].LastPrice != 205 {
		t.Errorf("BBB after refresh: stale=%d price=%.2f, want 0/205", quotes["BBB"].StaleTicks, quotes["BBB"].LastPrice)
	}
	if quotes["AAA"].StaleTicks != 1 {
		t.Errorf("AAA staleness = %d, want 1", quotes["AAA"].StaleTicks)
	}
}

func TestBook_NeverFabricatesPrices(t *testing.T) {
	b := NewBook()
	quotes := b.Apply(map[string]types.Bar{"AAA": bar(time.Now(), 100)})
	if _, ok := quotes["GHOST"]; ok {
		t.Error("book invented a quote for a symbol it never saw")
	}
	if _, ok := b.Lookup("GHOST"); ok {
		t.Error("Lookup returned a quote for an unknown symbol")
	}
}

func TestReplayFeed_StrictTimestampOrder(t *testing.T) {
	t0 := time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC)
	history := map[string][]types.Bar{
		"AAA": {bar(t0.Add(2*time.Minute), 102), bar(t0, 100), bar(t0.Add(time.Minute), 101)},
		"BBB": {bar(t0.Add(time.Minute), 201), bar(t0, 200)},
	}
	index := map[time.Time]float64{
		t0:                      20000,
		t0.Add(time.Minute):     20010,
		t0.Add(2 * time.Minute): 20020,
	}

	feed := NewReplayFeed(history, index)
	ctx := context.Background()

	var prev time.Time
	var count int
	for {
		snap, err := feed.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if count > 0 && !snap.Time.After(prev) {
			t.Errorf("tick %d at %v not after %v", count, snap.Time, prev)
		}
		prev = snap.Time
		count++
	}
	if count != 3 {
		t.Errorf("tick count = %d, want 3", count)
	}
}

func TestReplayFeed_MergesSymbolsPerTick(t *testing.T) {
	t0 := time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC)
	history := map[string][]types.Bar{
		"AAA": {bar(t0, 100), bar(t0.Add(time.Minute), 101)},
		"BBB": {bar(t0, 200)}, // no bar on the second tick
	}
	feed := NewReplayFeed(history, map[time.Time]float64{t0: 20000})

	snap, err := feed.Next(context.Background())
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(snap.Quotes) != 2 {
		t.Fatalf("first tick quotes = %d, want 2", len(snap.Quotes))
	}
	if !snap.IndexKnown || snap.IndexLevel != 20000 {
		t.Errorf("index = %.0f known=%v, want 20000/true", snap.IndexLevel, snap.IndexKnown)
	}

	snap, err = feed.Next(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if snap.Quotes["BBB"].StaleTicks != 1 {
		t.Errorf("BBB staleness on second tick = %d, want 1", snap.Quotes["BBB"].StaleTicks)
	}
	if snap.IndexKnown {
		t.Error("second tick has no index level and must not claim one")
	}
}

func TestReplayFeed_Deterministic(t *testing.T) {
	t0 := time.Date(2025, 11, 3, 9, 15, 0, 0, time.UTC)
	history := map[string][]types.Bar{
		"AAA": {bar(t0, 100), bar(t0.Add(time.Minute), 101)},
		"BBB": {bar(t0, 200), bar(t0.Add(time.Minute), 201)},
	}
	index := map[time.Time]float64{t0: 20000, t0.Add(time.Minute): 20010}

	run := func() []Snapshot {
		feed := NewReplayFeed(history, index)
		var snaps []Snapshot
		for {
			snap, err := feed.Next(context.Background())
			if err != nil {
				break
			}
			snaps = append(snaps, snap)
		}
		return snaps
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Time.Equal(second[i].Time) || first[i].IndexLevel != second[i].IndexLevel {
			t.Fatalf("tick %d differs across runs", i)
		}
		for sym, q := range first[i].Quotes {
			if second[i].Quotes[sym] != q {
				t.Fatalf("tick %d quote %s differs across runs", i, sym)
			}
		}
	}
}

func TestStaticUniverse_CopiesSymbols(t *testing.T) {
	u := StaticUniverse{"AAA", "BBB"}
	symbols, err := u.Symbols(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	symbols[0] = "MUTATED"
	if u[0] != "AAA" {
		t.Error("caller mutation leaked into the universe")
	}
}
