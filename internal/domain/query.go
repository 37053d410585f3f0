package domain

import (
	"sort"
	"strings"
	"time"
)

// DefaultDaysBack applies when a query names neither a range nor days_back.
const DefaultDaysBack = 7

// Query is the caller's request for a company risk sweep.
type Query struct {
	CompanyName    string
	StartDate      time.Time // zero when absent
	EndDate        time.Time // zero when absent
	DaysBack       int
	EnabledSources []SourceID // empty selects every configured source
	ForceRefresh   bool
}

// Window is an inclusive, day-granular date range in UTC.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Days returns the number of calendar days the window spans, inclusive.
func (w Window) Days() int {
	if w.To.Before(w.From) {
		return 0
	}
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	day := Day(t)
	return !day.Before(w.From) && !day.After(w.To)
}

// ResolvedQuery is a validated query with a concrete window and source set.
type ResolvedQuery struct {
	CompanyName string     `json:"company_name"`
	Window      Window     `json:"window"`
	Sources     []SourceID `json:"sources"` // sorted, deduplicated
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Resolve validates q against the known sources and fills in the window
// relative to now. It is the only place an InvalidQueryError originates.
func (q Query) Resolve(now time.Time, known []SourceID) (ResolvedQuery, error) {
	company := strings.TrimSpace(q.CompanyName)
	if company == "" {
		return ResolvedQuery{}, &InvalidQueryError{Field: "company_name", Reason: "must not be empty"}
	}
	if q.DaysBack < 0 {
		return ResolvedQuery{}, &InvalidQueryError{Field: "days_back", Reason: "must not be negative"}
	}
	daysBack := q.DaysBack
	if daysBack == 0 {
		daysBack = DefaultDaysBack
	}

	today := Day(now)
	var from, to time.Time
	switch {
	case !q.StartDate.IsZero() && !q.EndDate.IsZero():
		from, to = Day(q.StartDate), Day(q.EndDate)
		if from.After(to) {
			return ResolvedQuery{}, &InvalidQueryError{Field: "start_date", Reason: "must not be after end_date"}
		}
	case !q.StartDate.IsZero():
		from, to = Day(q.StartDate), today
	case !q.EndDate.IsZero():
		to = Day(q.EndDate)
		from = to.AddDate(0, 0, -daysBack)
	default:
		to = today
		from = to.AddDate(0, 0, -daysBack)
	}
	if to.After(today) {
		to = today
	}
	if from.After(to) {
		return ResolvedQuery{}, &InvalidQueryError{Field: "start_date", Reason: "lies in the future"}
	}

	sources, err := resolveSources(q.EnabledSources, known)
	if err != nil {
		return ResolvedQuery{}, err
	}

	return ResolvedQuery{
		CompanyName: company,
		Window:      Window{From: from, To: to},
		Sources:     sources,
	}, nil
}

func resolveSources(enabled, known []SourceID) ([]SourceID, error) {
	knownSet := make(map[SourceID]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	pick := enabled
	if len(pick) == 0 {
		pick = known
	}

	seen := make(map[SourceID]struct{}, len(pick))
	out := make([]SourceID, 0, len(pick))
	for _, s := range pick {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := knownSet[s]; !ok {
			return nil, &InvalidQueryError{Field: "enabled_sources", Reason: "unknown source " + s}
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// CacheKey is the normalized identity of a resolved query. ForceRefresh is
// deliberately absent.
func (r ResolvedQuery) CacheKey() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(r.CompanyName)))
	b.WriteByte('|')
	b.WriteString(r.Window.From.Format(time.DateOnly))
	b.WriteByte('|')
	b.WriteString(r.Window.To.Format(time.DateOnly))
	b.WriteByte('|')
	b.WriteString(strings.Join(r.Sources, ","))
	return b.String()
}
