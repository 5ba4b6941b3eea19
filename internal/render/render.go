// Package render draws the earnings calendar and live analyses for the
// terminal with lipgloss.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/calendar"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// EmptyDay is shown in a column with no companies.
const EmptyDay = "No earnings scheduled."

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dayStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	holidayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	tickerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	badgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	columnStyle  = lipgloss.NewStyle().MarginRight(1)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("12")).Padding(1, 2)
)

// Label buckets a score into a sentiment label.
func Label(score float64) string {
	switch {
	case score >= 7:
		return "Very Positive"
	case score >= 4:
		return "Positive"
	case score >= 1:
		return "Slightly Positive"
	case score <= -7:
		return "Very Negative"
	case score <= -4:
		return "Negative"
	case score <= -1:
		return "Slightly Negative"
	default:
		return "Neutral"
	}
}

// ScoreColor maps a score onto a red-yellow-green hue: -10 is red, 0 yellow
// and +10 green.
func ScoreColor(score float64) lipgloss.Color {
	s := max(-10, min(10, score))
	hue := 60 + 6*s
	return lipgloss.Color(colorful.Hsl(hue, 0.7, 0.45).Hex())
}

// FormatScore renders a score with an explicit plus sign when positive.
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if score > 0 {
		return "+" + s
	}
	return s
}

// Options controls the week view.
type Options struct {
	ColumnWidth int    // inner width of each day column; default 26
	Title       string // printed above the columns when set
}

// Week draws slots side by side, one column per day.
func Week(slots []calendar.Slot, opts Options) string {
	width := opts.ColumnWidth
	if width <= 0 {
		width = 26
	}

	columns := make([]string, 0, len(slots))
	for _, slot := range slots {
		columns = append(columns, column(slot, width))
	}

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(titleStyle.Render(opts.Title))
		b.WriteString("\n\n")
	}
	if len(columns) == 0 {
		b.WriteString(dimStyle.Render("No companies match."))
		return b.String()
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	return b.String()
}

func column(slot calendar.Slot, width int) string {
	lines := []string{header(slot, width)}
	if slot.Holiday != "" {
		lines = append(lines, holidayStyle.Render(truncate("Closed: "+slot.Holiday, width)))
	}
	lines = append(lines, "")

	if len(slot.Companies) == 0 {
		lines = append(lines, dimStyle.Render(EmptyDay))
	}
	for _, c := range slot.Companies {
		lines = append(lines, card(c, width))
	}
	return columnStyle.Width(width + 4).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func header(slot calendar.Slot, width int) string {
	day := dayStyle.Render(string(slot.Day))
	if slot.Date == "" {
		return day
	}
	gap := max(1, width+4-lipgloss.Width(day)-runewidth.StringWidth(slot.Date))
	return day + strings.Repeat(" ", gap) + dateStyle.Render(slot.Date)
}

// card draws one company: ticker and score badge, then name and coverage.
func card(c models.CompanyEntry, width int) string {
	inner := width - cardStyle.GetHorizontalPadding()
	badge := badgeStyle.Background(ScoreColor(c.SentimentScore)).Render(FormatScore(c.SentimentScore))
	tickerWidth := max(1, inner-lipgloss.Width(badge)-1)
	top := tickerStyle.Width(tickerWidth).Render(truncate(c.Ticker, tickerWidth)) + " " + badge

	body := []string{
		top,
		dimStyle.Render(truncate(c.Name, inner)),
		dimStyle.Render(fmt.Sprintf("%d news articles", c.TotalArticlesAvailable)),
	}
	return cardStyle.Width(width).Render(strings.Join(body, "\n"))
}

// Live draws the live-analysis panel for one company.
func Live(a *models.LiveAnalysis) string {
	if a == nil {
		return ""
	}
	score := badgeStyle.Background(ScoreColor(a.SentimentScore)).Render(FormatScore(a.SentimentScore))

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(a.Ticker), a.CompanyName)
	fmt.Fprintf(&b, "%s\n\n", dimStyle.Render(a.DateRange))
	fmt.Fprintf(&b, "Sentiment   %s  %s\n", score, Label(a.SentimentScore))
	fmt.Fprintf(&b, "Confidence  %s\n", a.Confidence)
	fmt.Fprintf(&b, "Articles    %d analyzed of %d found\n", a.ArticlesAnalyzed, a.TotalArticles)
	if len(a.Sources) > 0 {
		fmt.Fprintf(&b, "Sources     %s\n", strings.Join(a.Sources, ", "))
	}
	fmt.Fprintf(&b, "\n%s", a.Reason)

	const maxHeadlines = 5
	if len(a.Articles) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dayStyle.Render("Recent headlines"))
		for i, art := range a.Articles {
			if i == maxHeadlines {
				fmt.Fprintf(&b, "\n  %s", dimStyle.Render(fmt.Sprintf("… and %d more", len(a.Articles)-maxHeadlines)))
				break
			}
			fmt.Fprintf(&b, "\n  • %s", truncate(art.Headline, 72))
		}
	}
	return panelStyle.Render(b.String())
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
