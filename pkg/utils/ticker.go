package utils

import (
	"regexp"
	"strings"
)

// Common name aliases users type instead of the listed symbol.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"AMAZON":    "AMZN",
	"FACEBOOK":  "META",
	"FB":        "META",
	"NVIDIA":    "NVDA",
	"TESLA":     "TSLA",
	"NETFLIX":   "NFLX",
	"BRK-B":     "BRK.B",
	"BRK/B":     "BRK.B",
	"BRK-A":     "BRK.A",
	"BRK/A":     "BRK.A",
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,5}([.\-][A-Z0-9]{1,2})?$`)

// NormalizeTicker normalizes a user-input ticker to the canonical listed form.
// It handles aliases, uppercasing, and whitespace.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// IsValidTicker reports whether ticker, already normalized, looks like a US
// listed symbol (AAPL, BRK.B, BF-B).
func IsValidTicker(ticker string) bool {
	return tickerPattern.MatchString(ticker)
}

// ToYahooSymbol converts a class-share ticker to Yahoo Finance format (BRK.B → BRK-B).
func ToYahooSymbol(ticker string) string {
	return strings.ReplaceAll(NormalizeTicker(ticker), ".", "-")
}
