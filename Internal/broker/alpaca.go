package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fazecat/daytrader/Internal/types"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// AlpacaExecutor transmits market orders through the Alpaca trading
// API. Fill prices come back from the broker; when a fill price is not
// yet reported the decision price stands in so accounting never stalls
// a tick.
type AlpacaExecutor struct {
	client *alpaca.Client
}

func NewAlpacaExecutor(env *config.Env) (*AlpacaExecutor, error) {
	if env.AlpacaAPIKey == "" || env.AlpacaAPISecret == "" {
		return nil, fmt.Errorf("ALPACA_API_KEY or ALPACA_API_SECRET not set")
	}
	return &AlpacaExecutor{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    env.AlpacaAPIKey,
			APISecret: env.AlpacaAPISecret,
			BaseURL:   env.AlpacaBaseURL,
		}),
	}, nil
}

// Equity fetches the current account equity from the broker.
func (e *AlpacaExecutor) Equity() (float64, error) {
	account, err := e.client.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch account: %w", err)
	}
	equity, _ := account.Equity.Float64()
	return equity, nil
}

func (e *AlpacaExecutor) Fill(_ context.Context, symbol, side string, qty int64, decisionPrice float64, now time.Time) (types.Fill, error) {
	orderSide := alpaca.Buy
	if side == types.DirectionShort {
		orderSide = alpaca.Sell
	}

	quantity := decimal.NewFromInt(qty)
	order, err := e.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        orderSide,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return types.Fill{}, fmt.Errorf("failed to place %s order for %s: %w", side, symbol, err)
	}

	fill := types.Fill{
		Symbol:   symbol,
		Price:    decisionPrice,
		Quantity: qty,
		Time:     now,
	}
	if order.FilledAvgPrice != nil {
		fill.Price, _ = order.FilledAvgPrice.Float64()
	}
	if order.FilledAt != nil {
		fill.Time = *order.FilledAt
	}
	return fill, nil
}
