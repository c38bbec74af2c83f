package session

import (
	"context"
	"fmt"
	"time"

	"github.com/fazecat/daytrader/Internal/holiday"
	"github.com/fazecat/daytrader/Internal/utils/config"
)

// Gate answers the time-window questions for a trading day: whether a
// timestamp may open new positions, whether it forces exits, and whether
// a date is a trading day at all.
type Gate struct {
	loc *time.Location

	entryOpen         minuteOfDay
	entryClose        minuteOfDay
	marketClose       minuteOfDay
	shortSessionClose minuteOfDay

	shortSession bool
	shortDays    map[string]bool
	calendar     *holiday.Calendar
}

type minuteOfDay int

func parseClock(s string) (minuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return minuteOfDay(t.Hour()*60 + t.Minute()), nil
}

func NewGate(cfg *config.Config, calendar *holiday.Calendar) (*Gate, error) {
	loc, err := time.LoadLocation(cfg.Global.MarketHours.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone: %w", err)
	}

	g := &Gate{loc: loc, calendar: calendar}

	fields := []struct {
		raw  string
		dest *minuteOfDay
	}{
		{cfg.Global.MarketHours.EntryOpen, &g.entryOpen},
		{cfg.Global.MarketHours.EntryClose, &g.entryClose},
		{cfg.Global.MarketHours.MarketClose, &g.marketClose},
		{cfg.Global.MarketHours.ShortSessionClose, &g.shortSessionClose},
	}
	for _, f := range fields {
		m, err := parseClock(f.raw)
		if err != nil {
			return nil, err
		}
		*f.dest = m
	}

	if g.entryOpen >= g.entryClose {
		return nil, fmt.Errorf("entry window is empty: open %q >= close %q",
			cfg.Global.MarketHours.EntryOpen, cfg.Global.MarketHours.EntryClose)
	}

	g.shortDays = make(map[string]bool, len(cfg.Global.MarketHours.ShortSessionDates))
	for _, raw := range cfg.Global.MarketHours.ShortSessionDates {
		if _, err := time.ParseInLocation("2006-01-02", raw, loc); err != nil {
			return nil, fmt.Errorf("invalid short-session date %q: %w", raw, err)
		}
		g.shortDays[raw] = true
	}
	return g, nil
}

func (g *Gate) minute(t time.Time) minuteOfDay {
	local := t.In(g.loc)
	return minuteOfDay(local.Hour()*60 + local.Minute())
}

// effectiveEntryClose shrinks on short-session days.
func (g *Gate) effectiveEntryClose() minuteOfDay {
	if g.shortSession && g.shortSessionClose < g.entryClose {
		return g.shortSessionClose
	}
	return g.entryClose
}

// IsEntryAllowed reports whether new positions may be opened at t.
func (g *Gate) IsEntryAllowed(t time.Time) bool {
	m := g.minute(t)
	return m >= g.entryOpen && m < g.effectiveEntryClose()
}

// IsForcedExit reports whether t is at or past the forced end-of-day
// exit boundary.
func (g *Gate) IsForcedExit(t time.Time) bool {
	return g.minute(t) >= g.effectiveEntryClose()
}

// IsTradingDay consults the holiday calendar. The degraded flag is true
// when the answer came from fallback data; the safety gate picks it up.
func (g *Gate) IsTradingDay(ctx context.Context, date time.Time) (trading bool, degraded bool) {
	if g.calendar == nil {
		return true, true
	}
	return g.calendar.IsTradingDay(ctx, date)
}

// IsShortSessionDay reports whether the date is on the configured
// short-session list. The engine sets the flag from this at session
// start.
func (g *Gate) IsShortSessionDay(date time.Time) bool {
	return g.shortDays[date.In(g.loc).Format("2006-01-02")]
}

// SetShortSession marks today as a shortened session. The trailing-stop
// engine reads this back through the safety state to tighten sooner.
func (g *Gate) SetShortSession(short bool) {
	g.shortSession = short
}

func (g *Gate) ShortSession() bool {
	return g.shortSession
}

// Location returns the market timezone.
func (g *Gate) Location() *time.Location {
	return g.loc
}
