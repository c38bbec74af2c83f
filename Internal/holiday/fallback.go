package holiday

import "time"

// FallbackHolidays is the built-in exchange holiday list used when the
// primary calendar source is unreachable. Kept current by hand; the
// primary source remains authoritative whenever it answers.
func FallbackHolidays() []time.Time {
	dates := []string{
		"2026-01-26", // Republic Day
		"2026-03-04", // Holi
		"2026-03-20", // Id-Ul-Fitr
		"2026-04-01", // Annual bank closing
		"2026-04-03", // Good Friday
		"2026-04-14", // Dr. Ambedkar Jayanti
		"2026-05-01", // Maharashtra Day
		"2026-05-27", // Bakri Id
		"2026-08-15", // Independence Day
		"2026-09-14", // Ganesh Chaturthi
		"2026-10-02", // Gandhi Jayanti
		"2026-10-20", // Dussehra
		"2026-11-10", // Diwali
		"2026-11-24", // Guru Nanak Jayanti
		"2026-12-25", // Christmas
	}

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}
