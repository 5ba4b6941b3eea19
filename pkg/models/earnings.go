package models

import "time"

// Weekday is one of the five trading weekdays an earnings report can land on.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// Weekdays is the canonical calendar order. Every consumer iterates days in
// this order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday returns the canonical weekday for an exact weekday name.
// Anything else (weekends, lowercase, abbreviations) is rejected.
func ParseWeekday(s string) (Weekday, bool) {
	for _, d := range Weekdays {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// WeekdayOf returns the weekday of t, or false on Saturday and Sunday.
func WeekdayOf(t time.Time) (Weekday, bool) {
	return ParseWeekday(t.Weekday().String())
}

// Index returns the position of d in Weekdays, or -1.
func (d Weekday) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// EarningsDayMap maps ticker → weekday name. Values are untrusted and only
// honoured when they parse with ParseWeekday.
type EarningsDayMap map[string]string

// NameMap maps ticker → display name.
type NameMap map[string]string

// UnknownCompany is shown for tickers missing from the NameMap.
const UnknownCompany = "Unknown Company"

// EarningsEvent is one scheduled earnings report from the calendar source.
type EarningsEvent struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Day    Weekday   `json:"day"`
}

// DateString returns the event date as YYYY-MM-DD.
func (e EarningsEvent) DateString() string {
	return e.Date.Format("2006-01-02")
}

// EarningsCompany is a company reporting in the target week, together with the
// news collected for it.
type EarningsCompany struct {
	EarningsDate string        `json:"earnings_date"`
	EarningsDay  string        `json:"earnings_day"`
	ArticleCount int           `json:"article_count"`
	URLs         []string      `json:"urls,omitempty"`
	Articles     []NewsArticle `json:"article_details,omitempty"`
}

// EarningsDocument is the earnings-week snapshot served at /api/earnings.
type EarningsDocument struct {
	EarningsWeek   string                     `json:"earnings_week"`
	GeneratedAt    string                     `json:"generated_at"`
	TotalCompanies int                        `json:"total_companies"`
	Companies      map[string]EarningsCompany `json:"companies"`
}

// DayMap extracts the authoritative ticker → weekday mapping.
func (d *EarningsDocument) DayMap() EarningsDayMap {
	if d == nil {
		return nil
	}
	days := make(EarningsDayMap, len(d.Companies))
	for ticker, c := range d.Companies {
		days[ticker] = c.EarningsDay
	}
	return days
}
