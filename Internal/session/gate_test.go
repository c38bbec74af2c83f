package session

import (
	"testing"
	"time"

	"github.com/fazecat/daytrader/Internal/utils/config"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(config.Default(), nil)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return g
}

func at(t *testing.T, g *Gate, clock string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", "2025-11-03 "+clock, g.Location())
	if err != nil {
		t.Fatalf("bad clock %q: %v", clock, err)
	}
	return parsed
}

func TestIsEntryAllowed(t *testing.T) {
	g := newTestGate(t)
	tests := []struct {
		clock string
		want  bool
	}{
		{"09:14", false}, // before market open
		{"09:19", false}, // market open but entry window not yet
		{"09:20", true},  // entry window opens
		{"12:00", true},
		{"15:19", true},  // last entry minute
		{"15:20", false}, // forced-exit boundary
		{"15:30", false},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			if got := g.IsEntryAllowed(at(t, g, tt.clock)); got != tt.want {
				t.Errorf("IsEntryAllowed(%s) = %v, want %v", tt.clock, got, tt.want)
			}
		})
	}
}

func TestIsForcedExit(t *testing.T) {
	g := newTestGate(t)
	tests := []struct {
		clock string
		want  bool
	}{
		{"15:19", false},
		{"15:20", true},
		{"15:30", true},
		{"09:20", false},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			if got := g.IsForcedExit(at(t, g, tt.clock)); got != tt.want {
				t.Errorf("IsForcedExit(%s) = %v, want %v", tt.clock, got, tt.want)
			}
		})
	}
}

func TestShortSessionShrinksWindow(t *testing.T) {
	g := newTestGate(t)
	g.SetShortSession(true)

	if g.IsEntryAllowed(at(t, g, "13:00")) {
		t.Error("entry after the short-session close should be blocked")
	}
	if !g.IsForcedExit(at(t, g, "12:30")) {
		t.Error("short-session close should force exits")
	}
	if !g.IsEntryAllowed(at(t, g, "11:00")) {
		t.Error("morning entries should still be allowed on a short day")
	}

	g.SetShortSession(false)
	if !g.IsEntryAllowed(at(t, g, "13:00")) {
		t.Error("normal window should be restored")
	}
}

func TestIsShortSessionDay(t *testing.T) {
	cfg := config.Default()
	cfg.Global.MarketHours.ShortSessionDates = []string{"2025-11-03"}
	g, err := NewGate(cfg, nil)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	if !g.IsShortSessionDay(at(t, g, "10:00")) {
		t.Error("listed date should be a short-session day")
	}
	nextDay := at(t, g, "10:00").AddDate(0, 0, 1)
	if g.IsShortSessionDay(nextDay) {
		t.Error("unlisted date should not be a short-session day")
	}
}

func TestNewGate_RejectsBadShortSessionDate(t *testing.T) {
	cfg := config.Default()
	cfg.Global.MarketHours.ShortSessionDates = []string{"03-11-2025"}
	if _, err := NewGate(cfg, nil); err == nil {
		t.Error("expected error for malformed short-session date")
	}
}

func TestNewGate_RejectsEmptyWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Global.MarketHours.EntryOpen = "15:20"
	cfg.Global.MarketHours.EntryClose = "09:20"
	if _, err := NewGate(cfg, nil); err == nil {
		t.Error("expected error for inverted entry window")
	}
}

func TestNewGate_RejectsBadClock(t *testing.T) {
	cfg := config.Default()
	cfg.Global.MarketHours.EntryOpen = "not-a-time"
	if _, err := NewGate(cfg, nil); err == nil {
		t.Error("expected error for malformed clock time")
	}
}

func TestIsTradingDay_NilCalendarFailsOpen(t *testing.T) {
	g := newTestGate(t)
	trading, degraded := g.IsTradingDay(nil, at(t, g, "10:00"))
	if !trading || !degraded {
		t.Errorf("nil calendar: trading=%v degraded=%v, want true/true", trading, degraded)
	}
}
