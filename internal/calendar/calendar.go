// Package calendar turns a flat batch of per-company sentiment records into a
// weekday-partitioned, ranked earnings calendar, and provides the search
// helpers the dashboard runs over it.
package calendar

import (
	"math"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// Rejection reasons reported by BuildReport.
const (
	ReasonEmptyTicker  = "empty ticker"
	ReasonInvalidScore = "sentiment score is not a finite number"
)

// Report is the outcome of BuildReport.
type Report struct {
	Calendar models.WeekCalendar `json:"calendar"`
	Rejected []models.Rejection  `json:"rejected,omitempty"`
}

// Build partitions records into weekdays and ranks each day. Malformed records
// are dropped; use BuildReport to learn which ones.
func Build(records []models.SentimentRecord, days models.EarningsDayMap, names models.NameMap) models.WeekCalendar {
	return BuildReport(records, days, names).Calendar
}

// BuildReport is Build plus the list of dropped records.
//
// A record lands on days[ticker] when that value is an exact weekday name,
// otherwise on the weekday picked by FallbackDay. Each day is then sorted by
// total articles available and sentiment score, both descending, keeping input
// order for ties. The result always has all five weekdays, each non-nil.
func BuildReport(records []models.SentimentRecord, days models.EarningsDayMap, names models.NameMap) Report {
	cal := make(models.WeekCalendar, len(models.Weekdays))
	for _, d := range models.Weekdays {
		cal[d] = []models.CompanyEntry{}
	}

	var rejected []models.Rejection
	for i, rec := range records {
		if strings.TrimSpace(rec.Ticker) == "" {
			rejected = append(rejected, models.Rejection{Index: i, Reason: ReasonEmptyTicker})
			continue
		}
		if math.IsNaN(rec.SentimentScore) || math.IsInf(rec.SentimentScore, 0) {
			rejected = append(rejected, models.Rejection{Index: i, Ticker: rec.Ticker, Reason: ReasonInvalidScore})
			continue
		}

		day := AssignDay(rec.Ticker, days)
		cal[day] = append(cal[day], models.CompanyEntry{
			Ticker:                 rec.Ticker,
			Name:                   displayName(rec.Ticker, names),
			SentimentScore:         rec.SentimentScore,
			ArticlesAnalyzed:       rec.ArticlesAnalyzed,
			TotalArticlesAvailable: rec.TotalArticlesAvailable,
		})
	}

	for _, entries := range cal {
		rank(entries)
	}
	return Report{Calendar: cal, Rejected: rejected}
}

// AssignDay returns the authoritative weekday for ticker if days has a valid
// one, else FallbackDay(ticker).
func AssignDay(ticker string, days models.EarningsDayMap) models.Weekday {
	if d, ok := models.ParseWeekday(days[ticker]); ok {
		return d
	}
	return FallbackDay(ticker)
}

// FallbackDay maps a ticker onto a weekday with a 31-multiplier rolling hash
// over its UTF-16 code units, using int32 wraparound. The same ticker always
// lands on the same day.
func FallbackDay(ticker string) models.Weekday {
	// |MinInt32| does not fit in int32, so take the absolute value in 64 bits.
	h := int64(TickerHash(ticker))
	if h < 0 {
		h = -h
	}
	return models.Weekdays[h%int64(len(models.Weekdays))]
}

// TickerHash is the rolling hash behind FallbackDay.
func TickerHash(s string) int32 {
	var acc int32
	for _, c := range utf16.Encode([]rune(s)) {
		acc = acc*31 + int32(c)
	}
	return acc
}

func rank(entries []models.CompanyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalArticlesAvailable != b.TotalArticlesAvailable {
			return a.TotalArticlesAvailable > b.TotalArticlesAvailable
		}
		return a.SentimentScore > b.SentimentScore
	})
}

func displayName(ticker string, names models.NameMap) string {
	if name, ok := names[ticker]; ok && name != "" {
		return name
	}
	return models.UnknownCompany
}
