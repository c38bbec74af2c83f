package allocator

import (
	"fmt"
	"sort"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
)

// Portfolio is the single owner of capital and open positions. It is
// mutated only by the Allocator, on the engine's single logical thread,
// so every capital invariant is checked after each mutation and a
// violation aborts loudly: it means a guarantee broke somewhere else.
type Portfolio struct {
	totalCapital float64
	committed    float64
	maxPositions int

	positions map[string]*types.Position
	cooldown  map[string]time.Time
}

func NewPortfolio(totalCapital float64, maxPositions int) *Portfolio {
	return &Portfolio{
		totalCapital: totalCapital,
		maxPositions: maxPositions,
		positions:    make(map[string]*types.Position),
		cooldown:     make(map[string]time.Time),
	}
}

func (pf *Portfolio) TotalCapital() float64 { return pf.totalCapital }

func (pf *Portfolio) Committed() float64 { return pf.committed }

func (pf *Portfolio) Available() float64 { return pf.totalCapital - pf.committed }

func (pf *Portfolio) OpenCount() int { return len(pf.positions) }

// Position returns the open position for a symbol, if any. At most one
// open position exists per symbol.
func (pf *Portfolio) Position(symbol string) (*types.Position, bool) {
	p, ok := pf.positions[symbol]
	return p, ok
}

// OpenPositions returns the open set in symbol order, so iteration is
// deterministic across replay runs.
func (pf *Portfolio) OpenPositions() []*types.Position {
	out := make([]*types.Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Weakest returns the open position with the lowest entry score,
// breaking ties by symbol order.
func (pf *Portfolio) Weakest() *types.Position {
	var weakest *types.Position
	for _, p := range pf.OpenPositions() {
		if weakest == nil || p.ScoreAtEntry < weakest.ScoreAtEntry {
			weakest = p
		}
	}
	return weakest
}

func (pf *Portfolio) add(p *types.Position) {
	pf.positions[p.Symbol] = p
	pf.committed += p.CapitalCommitted
	pf.assertInvariants()
}

func (pf *Portfolio) remove(symbol string) *types.Position {
	p, ok := pf.positions[symbol]
	if !ok {
		return nil
	}
	delete(pf.positions, symbol)
	pf.committed -= p.CapitalCommitted
	pf.assertInvariants()
	return p
}

// assertInvariants panics on a broken capital guarantee. This is the
// programming-fault class: silently clamping would hide the bug that
// caused it.
func (pf *Portfolio) assertInvariants() {
	if pf.committed > pf.totalCapital+1e-6 {
		panic(fmt.Sprintf("invariant violation: committed capital %.2f exceeds total %.2f",
			pf.committed, pf.totalCapital))
	}
	if pf.committed < -1e-6 {
		panic(fmt.Sprintf("invariant violation: committed capital is negative: %.2f", pf.committed))
	}
	if len(pf.positions) > pf.maxPositions {
		panic(fmt.Sprintf("invariant violation: %d open positions exceeds max %d",
			len(pf.positions), pf.maxPositions))
	}
}

// SetCooldown blocks re-entry on a symbol until the given time.
func (pf *Portfolio) SetCooldown(symbol string, until time.Time) {
	pf.cooldown[symbol] = until
}

func (pf *Portfolio) InCooldown(symbol string, now time.Time) bool {
	until, ok := pf.cooldown[symbol]
	return ok && now.Before(until)
}
