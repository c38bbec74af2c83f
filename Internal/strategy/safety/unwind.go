package safety

import (
	"container/heap"

	"github.com/fazecat/daytrader/Internal/types"
)

// UnwindQueue orders open positions for crash liquidation: largest
// unrealized loss first, then largest capital committed. The allocator
// drains it one-or-few positions per tick until flat or the crash
// clears, so fills stay realistic.
type UnwindQueue struct {
	entries unwindHeap
}

type unwindEntry struct {
	symbol    string
	lossPct   float64 // negative = losing
	committed float64
}

type unwindHeap []unwindEntry

func (h unwindHeap) Len() int { return len(h) }

func (h unwindHeap) Less(i, j int) bool {
	if h[i].lossPct != h[j].lossPct {
		return h[i].lossPct < h[j].lossPct
	}
	return h[i].committed > h[j].committed
}

func (h unwindHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *unwindHeap) Push(x any) { *h = append(*h, x.(unwindEntry)) }

func (h *unwindHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// BuildUnwindQueue snapshots the open positions at current prices.
// Symbols without a known price are skipped: an unpriceable position
// cannot be ranked, and it will be picked up on a later tick.
func BuildUnwindQueue(positions []*types.Position, prices map[string]float64) *UnwindQueue {
	q := &UnwindQueue{entries: make(unwindHeap, 0, len(positions))}
	for _, p := range positions {
		price, ok := prices[p.Symbol]
		if !ok || !p.IsOpen() {
			continue
		}
		q.entries = append(q.entries, unwindEntry{
			symbol:    p.Symbol,
			lossPct:   p.UnrealizedReturnPct(price),
			committed: p.CapitalCommitted,
		})
	}
	heap.Init(&q.entries)
	return q
}

// Pop returns the next symbol to unwind, highest-risk first.
func (q *UnwindQueue) Pop() (string, bool) {
	if q.entries.Len() == 0 {
		return "", false
	}
	e := heap.Pop(&q.entries).(unwindEntry)
	return e.symbol, true
}

func (q *UnwindQueue) Len() int { return q.entries.Len() }
