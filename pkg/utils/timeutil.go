package utils

import (
	"fmt"
	"time"
)

// ET is the US Eastern location, where the exchanges and the earnings
// calendar live.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// DateLayout is the layout used for every calendar date on the wire.
const DateLayout = "2006-01-02"

// NowET returns the current time in US Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekdayIndex returns Monday=0 .. Sunday=6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekRange returns the Monday and Sunday of the week containing t.
func WeekRange(t time.Time) (start, end time.Time) {
	start = StartOfDay(t).AddDate(0, 0, -weekdayIndex(t))
	return start, start.AddDate(0, 0, 6)
}

// TargetWeek returns the Monday..Sunday range weeksAhead weeks from now.
// Zero means the current week; one means next week, including when now is
// a Monday.
func TargetWeek(now time.Time, weeksAhead int) (start, end time.Time) {
	if weeksAhead <= 0 {
		return WeekRange(now)
	}
	start = StartOfDay(now).AddDate(0, 0, 7*weeksAhead-weekdayIndex(now))
	return start, start.AddDate(0, 0, 6)
}

// FormatWeek renders a week range as "2025-08-04 to 2025-08-10".
func FormatWeek(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format(DateLayout), end.Format(DateLayout))
}

// ParseWeek parses a FormatWeek string.
func ParseWeek(s string) (start, end time.Time, err error) {
	var a, b string
	if _, err = fmt.Sscanf(s, "%s to %s", &a, &b); err != nil {
		return start, end, fmt.Errorf("parse week %q: %w", s, err)
	}
	if start, err = time.ParseInLocation(DateLayout, a, ET); err != nil {
		return start, end, fmt.Errorf("parse week %q: %w", s, err)
	}
	if end, err = time.ParseInLocation(DateLayout, b, ET); err != nil {
		return start, end, fmt.Errorf("parse week %q: %w", s, err)
	}
	return start, end, nil
}

// DayAndDate returns the date of the i-th weekday (Monday=0) of the week
// starting at weekStart, with its short "2 Jan" label.
func DayAndDate(weekStart time.Time, i int) (time.Time, string) {
	d := weekStart.AddDate(0, 0, i)
	return d, d.Format("2 Jan")
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsTradingHoliday checks if the given date is an NYSE trading holiday.
// This list should be updated annually.
func IsTradingHoliday(t time.Time) bool {
	_, isHoliday := HolidayName(t)
	return isHoliday
}

// HolidayName returns the NYSE holiday falling on t, if any.
func HolidayName(t time.Time) (string, bool) {
	name, ok := nyseHolidays[t.In(ET).Format(DateLayout)]
	return name, ok
}

// NYSE holidays (update annually).
var nyseHolidays = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
	"2027-01-01": "New Year's Day",
}
