package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const cacheTTL = 24 * time.Hour

// Source provides the trading-holiday list for the current year.
type Source interface {
	FetchHolidays(ctx context.Context) ([]time.Time, error)
}

// HTTPSource pulls the exchange holiday master over HTTP. Lookups are
// rate-limited so a misbehaving caller cannot hammer the exchange endpoint.
type HTTPSource struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute), 2),
	}
}

type holidayMaster struct {
	Data []struct {
		TradingDate string `json:"tradingDate"`
	} `json:"data"`
}

func (s *HTTPSource) FetchHolidays(ctx context.Context) ([]time.Time, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("holiday fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday endpoint returned status %d", resp.StatusCode)
	}

	var master holidayMaster
	if err := json.NewDecoder(resp.Body).Decode(&master); err != nil {
		return nil, fmt.Errorf("failed to decode holiday master: %w", err)
	}

	var holidays []time.Time
	for _, h := range master.Data {
		// Exchange format is like "26-Jan-2025"
		d, err := time.Parse("02-Jan-2006", h.TradingDate)
		if err != nil {
			log.Printf("⚠️  Could not parse holiday date from API: %s\n", h.TradingDate)
			continue
		}
		holidays = append(holidays, d)
	}
	return holidays, nil
}

// Calendar answers "is this date a trading day", combining a primary
// source with a static fallback list. The primary is cached for 24h.
// When primary and fallback disagree, trading wins: skipping a live
// session is worse than evaluating a dead one.
type Calendar struct {
	primary  Source
	fallback map[string]bool

	mu          sync.RWMutex
	cached      map[string]bool
	lastRefresh time.Time
}

func NewCalendar(primary Source, fallback []time.Time) *Calendar {
	fb := make(map[string]bool, len(fallback))
	for _, d := range fallback {
		fb[dateKey(d)] = true
	}
	return &Calendar{
		primary:  primary,
		fallback: fb,
		cached:   make(map[string]bool),
	}
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// IsTradingDay reports whether the date is a trading day and whether the
// answer came from degraded (fallback or fail-open) data. Weekends are
// never trading days. On total calendar failure it fails OPEN to trading.
func (c *Calendar) IsTradingDay(ctx context.Context, date time.Time) (trading bool, degraded bool) {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, false
	}

	primaryHoliday, err := c.primaryHoliday(ctx, date)
	fallbackHoliday := c.fallback[dateKey(date)]

	if err != nil {
		if c.primary != nil {
			log.Printf("⚠️  Holiday calendar primary unavailable (%v), using static fallback\n", err)
		}
		// Fail open: an unknown day is a trading day.
		return !fallbackHoliday, true
	}

	// Only a holiday when both sources agree; disagreement resolves
	// toward trading.
	return !(primaryHoliday && fallbackHoliday), false
}

func (c *Calendar) primaryHoliday(ctx context.Context, date time.Time) (bool, error) {
	if c.primary == nil {
		return false, fmt.Errorf("no primary holiday source configured")
	}

	c.mu.RLock()
	fresh := time.Since(c.lastRefresh) < cacheTTL && len(c.cached) > 0
	if fresh {
		holiday := c.cached[dateKey(date)]
		c.mu.RUnlock()
		return holiday, nil
	}
	c.mu.RUnlock()

	if err := c.Refresh(ctx); err != nil {
		return false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached[dateKey(date)], nil
}

// Refresh forces a reload from the primary source.
func (c *Calendar) Refresh(ctx context.Context) error {
	holidays, err := c.primary.FetchHolidays(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = make(map[string]bool, len(holidays))
	for _, d := range holidays {
		c.cached[dateKey(d)] = true
	}
	c.lastRefresh = time.Now()
	log.Printf("📅 Holiday calendar refreshed: %d holidays loaded\n", len(holidays))
	return nil
}
