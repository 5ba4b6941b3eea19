package sentiment

import (
	"fmt"
	"strings"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// SystemPrompt instructs the model to answer with a bare integer.
const SystemPrompt = `You are an expert financial news sentiment analyst. Analyze sentiment based on news headlines and sources.

You must provide nuanced, realistic sentiment scores that reflect the actual tone of the headlines. Do NOT default to neutral (0) unless the headlines truly have no sentiment bias.

ANALYSIS PROCESS:
1. Read every headline carefully for sentiment indicators
2. Identify positive/negative keywords and phrases
3. Consider the overall tone and implications
4. Weight based on source credibility and article volume
5. Provide a meaningful sentiment score that reflects reality

SCORING REQUIREMENTS:
- Use the full range from -10 to +10
- Be specific and granular in your scoring
- Positive headlines should get positive scores
- Negative headlines should get negative scores
- Only use 0 for truly neutral or perfectly balanced coverage

Return only a single integer from -10 to +10.`

const scoringGuide = `SENTIMENT SCORING GUIDELINES:
- Very Positive (+8 to +10): Multiple positive headlines, earnings beats, strong growth mentions, bullish analyst coverage
- Positive (+4 to +7): More positive than negative headlines, meeting expectations, favorable trends
- Slightly Positive (+1 to +3): Mild positive indicators, stable outlook, neutral-to-good news
- Neutral (0): Mixed headlines that balance out, or purely factual reporting
- Slightly Negative (-1 to -3): Mild concerns, cautious outlook, some disappointing news
- Negative (-4 to -7): More negative headlines, missing expectations, bearish sentiment
- Very Negative (-8 to -10): Predominantly negative headlines, major problems, very poor outlook`

// placeholderHeadline marks articles stored without a headline.
const placeholderHeadline = "No headline"

// Headline is a numbered headline line in the prompt. Number is the
// article's 1-based position in the company's article list, so skipped
// articles leave gaps.
type Headline struct {
	Number int
	Text   string
	Source string
}

// Headlines returns the usable headlines of a company's articles.
func Headlines(articles []models.NewsArticle) []Headline {
	out := make([]Headline, 0, len(articles))
	for i, a := range articles {
		text := strings.TrimSpace(a.Headline)
		if text == "" || text == placeholderHeadline {
			continue
		}
		source := strings.TrimSpace(a.Source)
		if source == "" {
			source = "Unknown source"
		}
		out = append(out, Headline{Number: i + 1, Text: text, Source: source})
	}
	return out
}

// BuildPrompt renders the user prompt for one company.
func BuildPrompt(ticker string, company models.EarningsCompany, headlines []Headline) string {
	date := orUnknown(company.EarningsDate)
	day := orUnknown(company.EarningsDay)

	var list strings.Builder
	for _, h := range headlines {
		fmt.Fprintf(&list, "%d. %s (%s)\n", h.Number, h.Text, h.Source)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COMPANY FOR SENTIMENT ANALYSIS: %s\n", ticker)
	fmt.Fprintf(&b, "EARNINGS DATE: %s\n", date)
	fmt.Fprintf(&b, "EARNINGS DAY: %s\n", day)
	fmt.Fprintf(&b, "TOTAL ARTICLES: %d\n\n", len(headlines))
	fmt.Fprintf(&b, "Analyze the sentiment toward %s based on these %d news article headlines:\n\n", ticker, len(headlines))
	b.WriteString(list.String())
	b.WriteString("\nANALYSIS INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "1. Analyze EVERY headline for sentiment indicators toward %s\n", ticker)
	b.WriteString("2. Look for positive keywords: growth, beat, strong, up, gains, bullish, upgrade, buy, outperform, exceeds, positive, rally, surge\n")
	b.WriteString("3. Look for negative keywords: loss, miss, down, decline, falls, bearish, downgrade, sell, underperform, concerns, drops, plunge\n")
	b.WriteString("4. Consider source credibility (Yahoo, MarketWatch, SeekingAlpha more reliable than unknown sources)\n")
	b.WriteString("5. Weight earnings-related news more heavily than general market news\n")
	b.WriteString("6. Consider overall volume of coverage (more articles = more market attention)\n\n")
	b.WriteString(scoringGuide)
	b.WriteString("\n\nIMPORTANT: Analyze based ONLY on the headlines provided. Return only a single integer from -10 to +10.\n")
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
