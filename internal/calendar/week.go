package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// Slot is one weekday column of a displayed week.
type Slot struct {
	Day       models.Weekday        `json:"day"`
	Date      string                `json:"date,omitempty"` // "2 Jan"
	Holiday   string                `json:"holiday,omitempty"`
	Companies []models.CompanyEntry `json:"companies"`
}

// Slots lays cal out in Monday..Friday order. With a non-zero weekStart each
// slot carries its date label and any NYSE holiday. Days missing from cal are
// skipped unless keepEmpty is set, in which case they appear with no companies.
func Slots(cal models.WeekCalendar, weekStart time.Time, keepEmpty bool) []Slot {
	slots := make([]Slot, 0, len(models.Weekdays))
	for i, day := range models.Weekdays {
		entries, ok := cal[day]
		if !ok && !keepEmpty {
			continue
		}
		if entries == nil {
			entries = []models.CompanyEntry{}
		}
		slot := Slot{Day: day, Companies: entries}
		if !weekStart.IsZero() {
			date, label := utils.DayAndDate(weekStart, i)
			slot.Date = label
			slot.Holiday, _ = utils.HolidayName(date)
		}
		slots = append(slots, slot)
	}
	return slots
}

// WeekStart returns the Monday of an "YYYY-MM-DD to YYYY-MM-DD" week label,
// or the zero time when the label does not parse.
func WeekStart(week string) time.Time {
	start, _, err := utils.ParseWeek(week)
	if err != nil {
		return time.Time{}
	}
	return start
}

// LoadNames reads a JSON object of ticker → company name. Tickers are
// upper-cased and blank entries dropped.
func LoadNames(path string) (models.NameMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read company names: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse company names %s: %w", path, err)
	}
	names := make(models.NameMap, len(raw))
	for ticker, name := range raw {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" || strings.TrimSpace(name) == "" {
			continue
		}
		names[ticker] = name
	}
	return names, nil
}
