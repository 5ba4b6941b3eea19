package calendar

import (
	"slices"
	"strings"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// Flatten lists every company in cal once, walking days in canonical order and
// each day in rank order. When a ticker appears more than once the later entry
// wins, but it keeps the position where the ticker was first seen.
func Flatten(cal models.WeekCalendar) []models.CompanyEntry {
	var out []models.CompanyEntry
	pos := make(map[string]int)
	for _, day := range models.Weekdays {
		for _, e := range cal[day] {
			if i, ok := pos[e.Ticker]; ok {
				out[i] = e
				continue
			}
			pos[e.Ticker] = len(out)
			out = append(out, e)
		}
	}
	return out
}

// Suggest returns the ticker of the first company whose ticker starts with
// query, ignoring case. An empty query never suggests anything.
func Suggest(companies []models.CompanyEntry, query string) (string, bool) {
	if query == "" {
		return "", false
	}
	q := strings.ToLower(query)
	for _, c := range companies {
		if strings.HasPrefix(strings.ToLower(c.Ticker), q) {
			return c.Ticker, true
		}
	}
	return "", false
}

// GhostText completes query with the remainder of suggestion, preserving the
// characters the user actually typed.
func GhostText(query, suggestion string) string {
	if len(query) >= len(suggestion) {
		return query
	}
	return query + suggestion[len(query):]
}

// Filter keeps the entries whose ticker or name contains query, ignoring case.
// Days left without matches are omitted. A blank query returns a copy of cal
// with every day kept.
func Filter(cal models.WeekCalendar, query string) models.WeekCalendar {
	if strings.TrimSpace(query) == "" {
		out := make(models.WeekCalendar, len(cal))
		for day, entries := range cal {
			out[day] = slices.Clone(entries)
		}
		return out
	}
	q := strings.ToLower(query)

	out := make(models.WeekCalendar)
	for _, day := range models.Weekdays {
		var matches []models.CompanyEntry
		for _, e := range cal[day] {
			if strings.Contains(strings.ToLower(e.Ticker), q) || strings.Contains(strings.ToLower(e.Name), q) {
				matches = append(matches, e)
			}
		}
		if len(matches) > 0 {
			out[day] = matches
		}
	}
	return out
}
