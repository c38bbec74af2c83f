package broker

import (
	"context"
	"time"

	"github.com/fazecat/daytrader/Internal/types"
)

// Executor is the execution collaborator: given a decided entry or exit
// it performs the fill and reports the actual fill price, quantity and
// time. The engine accounts PnL off the fill, never the decision price.
type Executor interface {
	Fill(ctx context.Context, symbol, side string, qty int64, decisionPrice float64, now time.Time) (types.Fill, error)
}

// PaperExecutor fills instantly at the decision price. Replay mode and
// paper trading both run on it, which keeps the two byte-comparable.
type PaperExecutor struct{}

func (PaperExecutor) Fill(_ context.Context, symbol, _ string, qty int64, decisionPrice float64, now time.Time) (types.Fill, error) {
	return types.Fill{
		Symbol:   symbol,
		Price:    decisionPrice,
		Quantity: qty,
		Time:     now,
	}, nil
}
