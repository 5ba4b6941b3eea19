// Package sentiment scores the news coverage of companies reporting
// earnings. An LLM is asked for a single integer in [-10, 10]; when no LLM
// is configured a deterministic keyword scorer stands in.
package sentiment

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Score bounds.
const (
	MinScore = -10
	MaxScore = 10
)

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"buy": 0.5, "strong": 0.4, "recovery": 0.5, "breakout": 0.6,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceeds": 0.5, "beats estimate": 0.6, "expansion": 0.4,
	"profit": 0.3, "dividend": 0.4, "raises guidance": 0.6,
	"gains": 0.4, "soar": 0.7, "jumps": 0.5,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "falls": 0.4, "drops": 0.4, "lawsuit": 0.5,
	"fraud": 0.8, "investigation": 0.5, "layoffs": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
}

// ScoreHeadline returns a sentiment score for a single headline.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreHeadline(headline string) (score float64, confidence float64) {
	lower := strings.ToLower(headline)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}

	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	total := bullScore + bearScore
	if matches == 0 || total == 0 {
		return 0, 0.1 // no signal
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / total

	// Confidence based on number of keyword matches.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)

	return score, confidence
}

// KeywordScore scores a set of headlines on the LLM's integer scale by
// averaging per-headline keyword scores.
func KeywordScore(headlines []string) int {
	if len(headlines) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range headlines {
		s, _ := ScoreHeadline(h)
		sum += s
	}
	return clamp(int(math.Round(sum / float64(len(headlines)) * MaxScore)))
}

var scorePattern = regexp.MustCompile(`[+-]?\d+`)

var (
	positiveHints = []string{"positive", "bullish", "strong", "good", "up", "gain"}
	negativeHints = []string{"negative", "bearish", "weak", "bad", "down", "loss"}
)

// ParseScore extracts a score from a model reply. The first signed integer
// wins and is clamped to [MinScore, MaxScore]. A reply with no number is
// read for sentiment words: positive gives +3, negative gives -3, and
// anything else 0. Hints match as substrings, so "update" counts as "up".
func ParseScore(reply string) int {
	reply = strings.TrimSpace(reply)
	if m := scorePattern.FindString(reply); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			// Out of int range; only the sign matters after clamping.
			if strings.HasPrefix(m, "-") {
				return MinScore
			}
			return MaxScore
		}
		return clamp(n)
	}

	lower := strings.ToLower(reply)
	switch {
	case containsAny(lower, positiveHints):
		return 3
	case containsAny(lower, negativeHints):
		return -3
	}
	return 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func clamp(n int) int {
	return max(MinScore, min(MaxScore, n))
}
