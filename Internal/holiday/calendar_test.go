package holiday

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	holidays []time.Time
	err      error
	calls    int
}

func (s *stubSource) FetchHolidays(_ context.Context) ([]time.Time, error) {
	s.calls++
	return s.holidays, s.err
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestIsTradingDay_Weekend(t *testing.T) {
	c := NewCalendar(&stubSource{}, nil)
	trading, degraded := c.IsTradingDay(context.Background(), date("2025-11-01")) // Saturday
	if trading || degraded {
		t.Errorf("Saturday: trading=%v degraded=%v, want false/false", trading, degraded)
	}
}

func TestIsTradingDay_BothSourcesAgreeOnHoliday(t *testing.T) {
	diwali := date("2025-10-21")
	src := &stubSource{holidays: []time.Time{diwali}}
	c := NewCalendar(src, []time.Time{diwali})

	trading, degraded := c.IsTradingDay(context.Background(), diwali)
	if trading {
		t.Error("agreed holiday should not be a trading day")
	}
	if degraded {
		t.Error("an answered primary is not degraded")
	}
}

func TestIsTradingDay_DisagreementResolvesTowardTrading(t *testing.T) {
	day := date("2025-10-21")

	t.Run("only primary lists it", func(t *testing.T) {
		c := NewCalendar(&stubSource{holidays: []time.Time{day}}, nil)
		if trading, _ := c.IsTradingDay(context.Background(), day); !trading {
			t.Error("disagreement should resolve toward trading")
		}
	})

	t.Run("only fallback lists it", func(t *testing.T) {
		c := NewCalendar(&stubSource{}, []time.Time{day})
		if trading, _ := c.IsTradingDay(context.Background(), day); !trading {
			t.Error("disagreement should resolve toward trading")
		}
	})
}

func TestIsTradingDay_PrimaryFailureUsesFallback(t *testing.T) {
	holiday := date("2025-10-21")
	src := &stubSource{err: errors.New("endpoint down")}
	c := NewCalendar(src, []time.Time{holiday})

	trading, degraded := c.IsTradingDay(context.Background(), holiday)
	if trading {
		t.Error("fallback holiday should block trading when primary is down")
	}
	if !degraded {
		t.Error("fallback answer must be flagged degraded")
	}

	trading, degraded = c.IsTradingDay(context.Background(), date("2025-10-22"))
	if !trading || !degraded {
		t.Errorf("ordinary weekday on fallback: trading=%v degraded=%v, want true/true", trading, degraded)
	}
}

func TestIsTradingDay_PrimaryCached(t *testing.T) {
	src := &stubSource{holidays: []time.Time{date("2025-10-21")}}
	c := NewCalendar(src, nil)

	ctx := context.Background()
	c.IsTradingDay(ctx, date("2025-10-20"))
	c.IsTradingDay(ctx, date("2025-10-21"))
	c.IsTradingDay(ctx, date("2025-10-22"))

	if src.calls != 1 {
		t.Errorf("primary fetched %d times, want 1 (cached)", src.calls)
	}
}

func TestFallbackHolidays_ParseClean(t *testing.T) {
	holidays := FallbackHolidays()
	if len(holidays) == 0 {
		t.Fatal("fallback list is empty")
	}
	for _, d := range holidays {
		if d.IsZero() {
			t.Error("fallback list contains a zero date")
		}
	}
}
