package marketdata

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
)

// ReplayFeed serves historical minute bars in strict timestamp order.
// It produces byte-identical snapshots on every run so replay results
// are reproducible.
type ReplayFeed struct {
	book  *Book
	ticks []replayTick
	pos   int
}

type replayTick struct {
	time       time.Time
	indexLevel float64
	bars       map[string]types.Bar
}

// NewReplayFeed builds a feed from per-symbol bar history plus an index
// level series keyed by timestamp. Bars sharing a timestamp become one
// tick; timestamps only present in the index series are skipped.
func NewReplayFeed(history map[string][]types.Bar, index map[time.Time]float64) *ReplayFeed {
	byTime := make(map[time.Time]map[string]types.Bar)
	for symbol, bars := range history {
		for _, bar := range bars {
			if byTime[bar.Timestamp] == nil {
				byTime[bar.Timestamp] = make(map[string]types.Bar)
			}
			byTime[bar.Timestamp][symbol] = bar
		}
	}

	ticks := make([]replayTick, 0, len(byTime))
	for ts, bars := range byTime {
		ticks = append(ticks, replayTick{
			time:       ts,
			indexLevel: index[ts],
			bars:       bars,
		})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].time.Before(ticks[j].time) })

	return &ReplayFeed{book: NewBook(), ticks: ticks}
}

func (f *ReplayFeed) Next(_ context.Context) (Snapshot, error) {
	if f.pos >= len(f.ticks) {
		return Snapshot{}, io.EOF
	}
	tick := f.ticks[f.pos]
	f.pos++

	return Snapshot{
		Time:       tick.time,
		IndexLevel: tick.indexLevel,
		IndexKnown: tick.indexLevel > 0,
		Quotes:     f.book.Apply(tick.bars),
	}, nil
}
