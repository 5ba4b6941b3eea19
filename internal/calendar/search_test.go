package calendar

import (
	"reflect"
	"testing"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

func sampleCalendar() models.WeekCalendar {
	return models.WeekCalendar{
		models.Monday: {
			{Ticker: "AAPL", Name: "Apple Inc.", TotalArticlesAvailable: 30},
			{Ticker: "AMZN", Name: "Amazon.com Inc.", TotalArticlesAvailable: 20},
		},
		models.Tuesday: {
			{Ticker: "MSFT", Name: "Microsoft Corporation", TotalArticlesAvailable: 25},
		},
		models.Wednesday: {
			{Ticker: "NVDA", Name: "NVIDIA Corporation", TotalArticlesAvailable: 40},
		},
		models.Thursday: {},
		models.Friday: {
			{Ticker: "AMD", Name: "Advanced Micro Devices", TotalArticlesAvailable: 12},
		},
	}
}

// ════════════════════════════════════════════════════════════════════
// Flatten
// ════════════════════════════════════════════════════════════════════

func TestFlattenOrder(t *testing.T) {
	got := tickers(Flatten(sampleCalendar()))
	want := []string{"AAPL", "AMZN", "MSFT", "NVDA", "AMD"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten = %v, want %v", got, want)
	}
}

func TestFlattenLastWriteWinsFirstSeenOrder(t *testing.T) {
	cal := models.WeekCalendar{
		models.Monday:  {{Ticker: "DUP", Name: "first"}, {Ticker: "ONE"}},
		models.Tuesday: {{Ticker: "TWO"}},
		models.Friday:  {{Ticker: "DUP", Name: "last"}},
	}
	got := Flatten(cal)
	if want := []string{"DUP", "ONE", "TWO"}; !reflect.DeepEqual(tickers(got), want) {
		t.Fatalf("Flatten order = %v, want %v", tickers(got), want)
	}
	if got[0].Name != "last" {
		t.Errorf("DUP name = %q, want %q", got[0].Name, "last")
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(Build(nil, nil, nil)); len(got) != 0 {
		t.Errorf("Flatten(empty) = %v", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// Suggest / GhostText
// ════════════════════════════════════════════════════════════════════

func TestSuggest(t *testing.T) {
	companies := Flatten(sampleCalendar())
	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"a", "AAPL", true},
		{"am", "AMZN", true},
		{"AMD", "AMD", true},
		{"ms", "MSFT", true},
		{"apple", "", false},
		{"x", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Suggest(companies, tt.query)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Suggest(%q) = (%q, %v), want (%q, %v)", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGhostText(t *testing.T) {
	tests := []struct {
		query, suggestion, want string
	}{
		{"aa", "AAPL", "aaPL"},
		{"MS", "MSFT", "MSFT"},
		{"AMD", "AMD", "AMD"},
		{"", "NVDA", "NVDA"},
	}
	for _, tt := range tests {
		if got := GhostText(tt.query, tt.suggestion); got != tt.want {
			t.Errorf("GhostText(%q, %q) = %q, want %q", tt.query, tt.suggestion, got, tt.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Filter
// ════════════════════════════════════════════════════════════════════

func TestFilterOmitsEmptyDays(t *testing.T) {
	got := Filter(sampleCalendar(), "am")

	if _, ok := got[models.Wednesday]; ok {
		t.Error("Wednesday has no match and should be omitted")
	}
	if _, ok := got[models.Thursday]; ok {
		t.Error("Thursday is empty and should be omitted")
	}
	if want := []string{"AMZN"}; !reflect.DeepEqual(tickers(got[models.Monday]), want) {
		t.Errorf("Monday = %v, want %v", tickers(got[models.Monday]), want)
	}
	if want := []string{"AMD"}; !reflect.DeepEqual(tickers(got[models.Friday]), want) {
		t.Errorf("Friday = %v, want %v", tickers(got[models.Friday]), want)
	}
	if len(got) != 2 {
		t.Errorf("days: got %d, want 2", len(got))
	}
}

func TestFilterMatchesName(t *testing.T) {
	got := Filter(sampleCalendar(), "corporation")
	if len(got) != 2 || len(got[models.Tuesday]) != 1 || len(got[models.Wednesday]) != 1 {
		t.Errorf("Filter(corporation) = %v", got)
	}
}

func TestFilterBlankQuery(t *testing.T) {
	cal := sampleCalendar()
	for _, q := range []string{"", "   "} {
		if got := Filter(cal, q); !reflect.DeepEqual(got, cal) {
			t.Errorf("Filter(%q) changed the calendar", q)
		}
	}
}

func TestFilterBlankQueryCopies(t *testing.T) {
	cal := sampleCalendar()
	got := Filter(cal, "")
	got[models.Monday][0].Ticker = "XXXX"
	delete(got, models.Tuesday)

	if cal[models.Monday][0].Ticker != "AAPL" {
		t.Errorf("Monday[0] = %q, want AAPL", cal[models.Monday][0].Ticker)
	}
	if _, ok := cal[models.Tuesday]; !ok {
		t.Error("Tuesday removed from the source calendar")
	}
}

func TestFilterNoMatches(t *testing.T) {
	if got := Filter(sampleCalendar(), "zzz"); len(got) != 0 {
		t.Errorf("Filter(zzz) = %v, want empty", got)
	}
}
