package scanner

import (
	"fmt"
	"strings"
	"time"

	"RiskScanner/internal/domain"
)

// ClampLookback narrows w so it starts no earlier than maxDays before now.
// The note describes the adjustment, empty when none was made. ok is false
// when w ends before the floor; nothing of it may be fetched then.
func ClampLookback(w domain.Window, maxDays int, now time.Time) (clamped domain.Window, note string, ok bool) {
	if maxDays <= 0 {
		return w, "", true
	}
	floor := domain.Day(now).AddDate(0, 0, -maxDays)
	if !w.From.Before(floor) {
		return w, "", true
	}
	if w.To.Before(floor) {
		return domain.Window{}, fmt.Sprintf("requested window %s to %s lies beyond the %d-day lookback limit",
			w.From.Format(time.DateOnly), w.To.Format(time.DateOnly), maxDays), false
	}
	clamped = w
	clamped.From = floor
	return clamped, fmt.Sprintf("window start moved from %s to %s (lookback limit %d days)",
		w.From.Format(time.DateOnly), floor.Format(time.DateOnly), maxDays), true
}

// Holidays is a set of fixed-date holidays keyed "MM-DD".
type Holidays map[string]struct{}

// ParseHolidays reads a comma-separated MM-DD list; malformed entries are skipped.
func ParseHolidays(csv string) Holidays {
	h := Holidays{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if _, err := time.Parse("01-02", part); err == nil {
			h[part] = struct{}{}
		}
	}
	return h
}

// Has reports whether day is a listed holiday.
func (h Holidays) Has(day time.Time) bool {
	_, ok := h[day.Format("01-02")]
	return ok
}

// PublicationDays steps through w, skipping Sundays and holidays, newest
// first. At most limit days are returned when limit > 0.
func PublicationDays(w domain.Window, holidays Holidays, limit int) []time.Time {
	var days []time.Time
	for d := w.To; !d.Before(w.From); d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Sunday || holidays.Has(d) {
			continue
		}
		days = append(days, d)
		if limit > 0 && len(days) == limit {
			break
		}
	}
	return days
}
