package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/calendar"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/sentiment"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// ErrInvalidTicker is returned by Analyze for input that is not a symbol.
var ErrInvalidTicker = errors.New("dashboard: invalid ticker")

// ErrSessionClosed is returned by calls made after Close.
var ErrSessionClosed = errors.New("dashboard: session closed")

// Session holds the state of one dashboard: the loaded calendar, the search
// box, and the live-analysis scorer. It is safe for concurrent use.
type Session struct {
	client   *Client
	analyzer *sentiment.Analyzer
	now      func() time.Time

	mu       sync.Mutex
	loadSeq  uint64
	cancel   context.CancelFunc
	closed   bool
	week     string
	loadedAt time.Time
	cal      models.WeekCalendar
	rejected []models.Rejection
	names    models.NameMap
	search   string
}

// NewSession creates a session reading from client. A nil analyzer scores
// live analyses with keywords.
func NewSession(client *Client, analyzer *sentiment.Analyzer) *Session {
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer(nil)
	}
	return &Session{
		client:   client,
		analyzer: analyzer,
		now:      time.Now,
		cal:      calendar.Build(nil, nil, nil),
	}
}

// Load fetches sentiment, earnings days and names, and rebuilds the calendar.
// A new Load cancels any load still in flight; the superseded call returns
// context.Canceled and leaves the state alone. Earnings and names are
// optional: without them days come from the hash and names are unknown.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.loadSeq++
	seq := s.loadSeq
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	doc, rejected, err := s.client.Sentiment(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("load sentiment: %w", err)
	}

	var days models.EarningsDayMap
	week := doc.EarningsWeek
	if earnings, err := s.client.Earnings(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("earnings unavailable, assigning days by hash")
	} else {
		days = earnings.DayMap()
		week = earnings.EarningsWeek
	}

	names, err := s.client.Names(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("company names unavailable")
	}

	report := calendar.BuildReport(doc.Results, days, names)
	positions := rawPositions(len(doc.Results), rejected)
	for _, r := range report.Rejected {
		r.Index = positions[r.Index]
		rejected = append(rejected, r)
	}
	sort.SliceStable(rejected, func(i, j int) bool { return rejected[i].Index < rejected[j].Index })
	for _, r := range rejected {
		log.Debug().Int("index", r.Index).Str("ticker", r.Ticker).Str("reason", r.Reason).Msg("dropped sentiment record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq || s.closed {
		return context.Canceled
	}
	s.cal = report.Calendar
	s.rejected = rejected
	s.names = names
	s.week = week
	s.loadedAt = s.now()
	s.cancel = nil
	return nil
}

// SetSearch updates the search box.
func (s *Session) SetSearch(q string) {
	s.mu.Lock()
	s.search = q
	s.mu.Unlock()
}

// Search returns the current search text.
func (s *Session) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// Suggestion returns the ticker completing the current search, if any.
func (s *Session) Suggestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.Suggest(calendar.Flatten(s.cal), s.search)
}

// Ghost returns the search text completed by the suggestion, or "" when
// nothing matches.
func (s *Session) Ghost() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestion, ok := calendar.Suggest(calendar.Flatten(s.cal), s.search)
	if !ok {
		return ""
	}
	return calendar.GhostText(s.search, suggestion)
}

// AcceptSuggestion replaces the search with the suggested ticker. It reports
// whether there was one.
func (s *Session) AcceptSuggestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestion, ok := calendar.Suggest(calendar.Flatten(s.cal), s.search)
	if ok {
		s.search = suggestion
	}
	return ok
}

// View returns the calendar filtered by the current search.
func (s *Session) View() models.WeekCalendar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.Filter(s.cal, s.search)
}

// Companies lists every loaded company once, in calendar order.
func (s *Session) Companies() []models.CompanyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calendar.Flatten(s.cal)
}

// Rejected returns the records dropped by the last load.
func (s *Session) Rejected() []models.Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Rejection(nil), s.rejected...)
}

// Week returns the earnings week label of the last load.
func (s *Session) Week() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week
}

// Analyze fetches fresh news for symbol and scores it on the spot.
// ErrNotReporting is returned for companies outside the loaded week.
func (s *Session) Analyze(ctx context.Context, symbol string) (*models.LiveAnalysis, error) {
	ticker := utils.NormalizeTicker(symbol)
	if !utils.IsValidTicker(ticker) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, symbol)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	name := s.companyName(ticker)
	s.mu.Unlock()

	detail, err := s.client.Company(ctx, ticker, true)
	if err != nil {
		return nil, err
	}

	rec := s.analyzer.ScoreCompany(ctx, detail.Ticker, models.EarningsCompany{
		EarningsDate: detail.EarningsDate,
		EarningsDay:  detail.EarningsDay,
		ArticleCount: len(detail.Articles),
		Articles:     detail.Articles,
	})

	return &models.LiveAnalysis{
		Ticker:           detail.Ticker,
		CompanyName:      name,
		SentimentScore:   rec.SentimentScore,
		Confidence:       models.ConfidenceFor(rec.SentimentScore),
		ArticlesAnalyzed: rec.ArticlesAnalyzed,
		TotalArticles:    len(detail.Articles),
		DateRange:        fmt.Sprintf("Earnings on %s, %s", detail.EarningsDay, detail.EarningsDate),
		Sources:          articleSources(detail.Articles),
		Reason:           reason(detail.Ticker, rec),
		Articles:         detail.Articles,
		AnalyzedAt:       s.now().UTC(),
	}, nil
}

// Close cancels any in-flight load. Later calls fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// companyName must be called with mu held.
func (s *Session) companyName(ticker string) string {
	if name := s.names[ticker]; name != "" {
		return name
	}
	for _, e := range calendar.Flatten(s.cal) {
		if e.Ticker == ticker {
			return e.Name
		}
	}
	return models.UnknownCompany
}

func articleSources(articles []models.NewsArticle) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, a := range articles {
		src := strings.TrimSpace(a.Source)
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}

func reason(ticker string, rec models.SentimentRecord) string {
	if rec.ArticlesAnalyzed > 0 {
		return fmt.Sprintf("Sentiment analysis for %s based on %d headlines analyzed.", ticker, rec.ArticlesAnalyzed)
	}
	if rec.TotalArticlesAvailable > 0 {
		return fmt.Sprintf("No usable headlines for sentiment analysis. %s has %d news articles available.", ticker, rec.TotalArticlesAvailable)
	}
	return fmt.Sprintf("No recent news found for %s.", ticker)
}

// rawPositions maps each decoded record to its index in the document's
// sentiment_results array, skipping the entries the decoder rejected.
func rawPositions(decoded int, undecodable []models.Rejection) []int {
	skip := make(map[int]bool, len(undecodable))
	for _, r := range undecodable {
		skip[r.Index] = true
	}
	positions := make([]int, 0, decoded)
	for i := 0; len(positions) < decoded; i++ {
		if !skip[i] {
			positions = append(positions, i)
		}
	}
	return positions
}
