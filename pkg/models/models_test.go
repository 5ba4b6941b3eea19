package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// ── Weekday Tests ──

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want Weekday
		ok   bool
	}{
		{"Monday", Monday, true},
		{"Friday", Friday, true},
		{"friday", "", false},
		{"Saturday", "", false},
		{"Mon", "", false},
		{"", "", false},
		{" Tuesday", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseWeekday(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseWeekday(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWeekdayIndex(t *testing.T) {
	for i, d := range Weekdays {
		if d.Index() != i {
			t.Errorf("%s.Index() = %d, want %d", d, d.Index(), i)
		}
	}
	if Weekday("Sunday").Index() != -1 {
		t.Error("Sunday should not have an index")
	}
}

func TestWeekdayOf(t *testing.T) {
	wed := time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)
	if d, ok := WeekdayOf(wed); !ok || d != Wednesday {
		t.Errorf("WeekdayOf(%s) = (%q, %v), want Wednesday", wed, d, ok)
	}
	sat := time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC)
	if _, ok := WeekdayOf(sat); ok {
		t.Error("Saturday should not map to a trading weekday")
	}
}

// ── Earnings Tests ──

func TestEarningsDocumentDayMap(t *testing.T) {
	doc := &EarningsDocument{
		Companies: map[string]EarningsCompany{
			"AAPL": {EarningsDay: "Thursday"},
			"MSFT": {EarningsDay: "Tuesday"},
		},
	}
	days := doc.DayMap()
	if days["AAPL"] != "Thursday" || days["MSFT"] != "Tuesday" {
		t.Errorf("DayMap() = %v", days)
	}

	var nilDoc *EarningsDocument
	if nilDoc.DayMap() != nil {
		t.Error("nil document should produce a nil day map")
	}
}

func TestEarningsCompanyJSONKeys(t *testing.T) {
	c := EarningsCompany{
		EarningsDate: "2025-08-07",
		EarningsDay:  "Thursday",
		ArticleCount: 1,
		URLs:         []string{"https://example.com/a"},
		Articles:     []NewsArticle{{Headline: "Beats estimates", URL: "https://example.com/a", Datetime: 1754500000}},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	for _, key := range []string{"earnings_date", "earnings_day", "article_count", "urls", "article_details"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
}

// ── Sentiment Document Tests ──

func TestDecodeSentimentDocument(t *testing.T) {
	data := []byte(`{
		"analysis_timestamp": "2025-08-04T09:00:00",
		"earnings_week": "2025-08-04 to 2025-08-10",
		"total_companies_analyzed": 3,
		"sentiment_results": [
			{"ticker": "AAPL", "sentiment_score": 4, "articles_analyzed": 10, "total_articles_available": 25},
			{"ticker": "MSFT", "sentiment_score": "bullish"},
			{"ticker": "NVDA"}
		]
	}`)

	doc, rejected, err := DecodeSentimentDocument(data)
	if err != nil {
		t.Fatalf("DecodeSentimentDocument error: %v", err)
	}
	if len(doc.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(doc.Results))
	}
	if doc.Results[0].Ticker != "AAPL" || doc.Results[0].TotalArticlesAvailable != 25 {
		t.Errorf("first record = %+v", doc.Results[0])
	}
	if doc.Results[1].Ticker != "NVDA" || doc.Results[1].SentimentScore != 0 {
		t.Errorf("missing fields should default to zero, got %+v", doc.Results[1])
	}
	if len(rejected) != 1 || rejected[0].Index != 1 {
		t.Errorf("rejected = %+v, want index 1", rejected)
	}
}

func TestDecodeSentimentDocumentAnalysisDate(t *testing.T) {
	doc, _, err := DecodeSentimentDocument([]byte(`{"analysis_date": "2025-08-04", "sentiment_results": []}`))
	if err != nil {
		t.Fatalf("DecodeSentimentDocument error: %v", err)
	}
	if doc.AnalysisTimestamp != "2025-08-04" {
		t.Errorf("AnalysisTimestamp: got %q, want %q", doc.AnalysisTimestamp, "2025-08-04")
	}
	if doc.Results == nil {
		t.Error("empty results should be a non-nil slice")
	}
}

func TestDecodeSentimentDocumentMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"results not array", `{"sentiment_results": {"ticker": "AAPL"}}`},
		{"results missing", `{"earnings_week": "x"}`},
		{"results null", `{"sentiment_results": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeSentimentDocument([]byte(tt.data))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("got %v, want ErrMalformedDocument", err)
			}
		})
	}
}

// ── Analysis Tests ──

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{8, ConfidenceHigh},
		{-6, ConfidenceHigh},
		{5, ConfidenceMedium},
		{-3, ConfidenceMedium},
		{2, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := ConfidenceFor(tt.score); got != tt.want {
			t.Errorf("ConfidenceFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestWeekCalendarCount(t *testing.T) {
	cal := WeekCalendar{
		Monday:  {{Ticker: "A"}, {Ticker: "B"}},
		Tuesday: {},
		Friday:  {{Ticker: "C"}},
	}
	if got := cal.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestNewsArticlePublished(t *testing.T) {
	a := NewsArticle{Datetime: 1754500000}
	if got := a.Published(); got.Unix() != 1754500000 || got.Location() != time.UTC {
		t.Errorf("Published() = %v", got)
	}
}
