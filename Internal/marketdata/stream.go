package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fazecat/daytrader/Internal/types"
)

// streamMessage is one minute-tick frame from the upstream feed.
type streamMessage struct {
	Timestamp  int64   `json:"t"` // unix seconds
	IndexLevel float64 `json:"index"`
	Bars       map[string]struct {
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume int64   `json:"v"`
	} `json:"bars"`
}

// StreamFeed is the live-mode Feed: a websocket client that converts
// upstream minute frames into snapshots. Symbols missing from a frame
// are carried forward by the book with an aged staleness counter.
type StreamFeed struct {
	url            string
	book           *Book
	snapshots      chan Snapshot
	reconnectDelay time.Duration
}

func NewStreamFeed(url string) *StreamFeed {
	return &StreamFeed{
		url:            url,
		book:           NewBook(),
		snapshots:      make(chan Snapshot, 16),
		reconnectDelay: 5 * time.Second,
	}
}

// Start connects and keeps reconnecting until ctx is cancelled.
func (f *StreamFeed) Start(ctx context.Context) {
	go f.connectLoop(ctx)
}

func (f *StreamFeed) connectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(f.snapshots)
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			log.Printf("❌ Market feed connect failed: %v, retrying in %v\n", err, f.reconnectDelay)
			select {
			case <-ctx.Done():
				close(f.snapshots)
				return
			case <-time.After(f.reconnectDelay):
			}
			continue
		}

		log.Println("✅ Market feed connected")
		f.readLoop(ctx, conn)
		conn.Close()
	}
}

func (f *StreamFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("⚠️  Market feed read error: %v\n", err)
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("⚠️  Market feed dropped malformed frame: %v\n", err)
			continue
		}

		snap := f.toSnapshot(msg)
		select {
		case f.snapshots <- snap:
		case <-ctx.Done():
			return
		}
	}
}

func (f *StreamFeed) toSnapshot(msg streamMessage) Snapshot {
	ts := time.Unix(msg.Timestamp, 0)

	updates := make(map[string]types.Bar, len(msg.Bars))
	for symbol, b := range msg.Bars {
		updates[symbol] = types.Bar{
			Timestamp: ts,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	return Snapshot{
		Time:       ts,
		IndexLevel: msg.IndexLevel,
		IndexKnown: msg.IndexLevel > 0,
		Quotes:     f.book.Apply(updates),
	}
}

// Next blocks until the next snapshot arrives or ctx is cancelled.
func (f *StreamFeed) Next(ctx context.Context) (Snapshot, error) {
	select {
	case snap, ok := <-f.snapshots:
		if !ok {
			return Snapshot{}, fmt.Errorf("market feed closed")
		}
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}
