package models

import "time"

// CompanyEntry is one company as displayed in the calendar.
type CompanyEntry struct {
	Ticker                 string  `json:"ticker"`
	Name                   string  `json:"name"`
	SentimentScore         float64 `json:"sentiment_score"`
	ArticlesAnalyzed       int     `json:"articles_analyzed"`
	TotalArticlesAvailable int     `json:"total_articles_available"`
}

// WeekCalendar maps each weekday to its ranked companies. A freshly built
// calendar always carries all five weekdays; filtered views may omit some.
type WeekCalendar map[Weekday][]CompanyEntry

// Count returns the total number of entries across all days.
func (c WeekCalendar) Count() int {
	n := 0
	for _, entries := range c {
		n += len(entries)
	}
	return n
}

// NewsArticle is a single headline collected for a company.
type NewsArticle struct {
	Headline string `json:"headline"`
	URL      string `json:"url"`
	Source   string `json:"source,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Datetime int64  `json:"datetime"` // unix seconds
}

// Published returns the article timestamp.
func (a NewsArticle) Published() time.Time {
	return time.Unix(a.Datetime, 0).UTC()
}

// CompanyDetail is the per-company payload of /api/company/{ticker}.
type CompanyDetail struct {
	Ticker       string        `json:"ticker"`
	EarningsDate string        `json:"earnings_date"`
	EarningsDay  string        `json:"earnings_day"`
	ArticleCount int           `json:"article_count"`
	Articles     []NewsArticle `json:"articles"`
	Fetched      bool          `json:"fetched,omitempty"`
}

// CompanySummary is one row of /api/companies, joined with its sentiment.
type CompanySummary struct {
	Ticker           string  `json:"ticker"`
	EarningsDate     string  `json:"earnings_date"`
	EarningsDay      string  `json:"earnings_day"`
	ArticleCount     int     `json:"article_count"`
	SentimentScore   float64 `json:"sentiment_score"`
	ArticlesAnalyzed int     `json:"articles_analyzed"`
}

// CompanyList is the payload of /api/companies.
type CompanyList struct {
	EarningsWeek string           `json:"earnings_week"`
	Companies    []CompanySummary `json:"companies"`
	Total        int              `json:"total_companies"`
}

// Confidence is the coarse confidence bucket shown with a live analysis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceFor buckets a sentiment score by magnitude.
func ConfidenceFor(score float64) Confidence {
	switch abs := max(score, -score); {
	case abs > 5:
		return ConfidenceHigh
	case abs > 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// LiveAnalysis is the on-demand single-company analysis shown by the dashboard.
type LiveAnalysis struct {
	Ticker           string        `json:"ticker"`
	CompanyName      string        `json:"company_name"`
	SentimentScore   float64       `json:"sentiment_score"`
	Confidence       Confidence    `json:"confidence"`
	ArticlesAnalyzed int           `json:"articles_analyzed"`
	TotalArticles    int           `json:"total_articles"`
	DateRange        string        `json:"date_range"`
	Sources          []string      `json:"sources"`
	Reason           string        `json:"reason"`
	Articles         []NewsArticle `json:"articles,omitempty"`
	AnalyzedAt       time.Time     `json:"analyzed_at"`
}

// Status is the payload of /api/status.
type Status struct {
	Status           string `json:"status"`
	DataReady        bool   `json:"data_ready"`
	LastUpdate       string `json:"last_update,omitempty"`
	UpdateInProgress bool   `json:"update_in_progress"`
	LastError        string `json:"last_error,omitempty"`
	LastRunID        string `json:"last_run_id,omitempty"`
}
