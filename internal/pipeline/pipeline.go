// Package pipeline runs a refresh cycle: fetch the target week's earnings
// schedule, collect news for every reporting company, store the snapshot,
// and optionally score sentiment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/datasource"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/sentiment"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/store"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// ErrNotReporting is returned when a single-ticker run names a company that
// is not on the target week's schedule.
var ErrNotReporting = errors.New("pipeline: company is not reporting in the target week")

// Options selects what a run does.
type Options struct {
	WeeksAhead   int    `json:"weeks_ahead"`
	RunSentiment bool   `json:"run_sentiment"`
	Ticker       string `json:"ticker,omitempty"`       // refresh one company, merging into the stored week
	UseExisting  bool   `json:"use_existing,omitempty"` // skip fetching, re-score the stored snapshot
}

// Result summarizes a finished run.
type Result struct {
	RunID     string        `json:"run_id"`
	Week      string        `json:"earnings_week"`
	Scheduled int           `json:"scheduled"`
	Companies int           `json:"companies"`
	Excluded  int           `json:"excluded"`
	Articles  int           `json:"articles"`
	Analyzed  int           `json:"analyzed"`
	Duration  time.Duration `json:"duration"`
}

// NewsCollector gathers articles for many tickers at once.
type NewsCollector interface {
	CollectNews(ctx context.Context, tickers []string, from, to time.Time) (map[string][]models.NewsArticle, error)
}

// Pipeline wires the sources, the store and the analyzer together.
type Pipeline struct {
	earnings datasource.EarningsSource
	news     NewsCollector
	store    *store.Store
	analyzer *sentiment.Analyzer
	daysBack int
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNewsWindow sets how many days of news are collected.
func WithNewsWindow(days int) Option {
	return func(p *Pipeline) {
		if days > 0 {
			p.daysBack = days
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. A nil analyzer scores with keywords.
func New(earnings datasource.EarningsSource, news NewsCollector, st *store.Store, analyzer *sentiment.Analyzer, opts ...Option) *Pipeline {
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer(nil)
	}
	p := &Pipeline{
		earnings: earnings,
		news:     news,
		store:    st,
		analyzer: analyzer,
		daysBack: 30,
		now:      utils.NowET,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one refresh cycle.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	var (
		res *Result
		err error
	)
	if opts.UseExisting {
		res, err = p.rescore(ctx, opts)
	} else {
		res, err = p.refresh(ctx, opts)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (p *Pipeline) refresh(ctx context.Context, opts Options) (*Result, error) {
	now := p.now().In(utils.ET)
	weekStart, weekEnd := utils.TargetWeek(now, opts.WeeksAhead)
	week := utils.FormatWeek(weekStart, weekEnd)

	events, err := p.earnings.EarningsWeek(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("earnings for %s: %w", week, err)
	}
	events = dedupeEvents(events)
	res := &Result{Week: week, Scheduled: len(events)}
	log.Info().Str("week", week).Int("scheduled", len(events)).Msg("earnings schedule fetched")

	if opts.Ticker != "" {
		ticker := utils.NormalizeTicker(opts.Ticker)
		ev, ok := findEvent(events, ticker)
		if !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotReporting, ticker, week)
		}
		events = []models.EarningsEvent{ev}
	}

	tickers := make([]string, len(events))
	for i, ev := range events {
		tickers[i] = ev.Ticker
	}
	news, err := p.news.CollectNews(ctx, tickers, now.AddDate(0, 0, -p.daysBack), now)
	if err != nil {
		return nil, fmt.Errorf("collect news: %w", err)
	}

	doc := &models.EarningsDocument{
		EarningsWeek: week,
		GeneratedAt:  now.UTC().Format(time.RFC3339),
		Companies:    make(map[string]models.EarningsCompany, len(events)),
	}
	for _, ev := range events {
		articles := news[ev.Ticker]
		if len(articles) == 0 {
			res.Excluded++
			continue
		}
		urls := make([]string, len(articles))
		for i, a := range articles {
			urls[i] = a.URL
		}
		doc.Companies[ev.Ticker] = models.EarningsCompany{
			EarningsDate: ev.DateString(),
			EarningsDay:  string(ev.Day),
			ArticleCount: len(articles),
			URLs:         urls,
			Articles:     articles,
		}
		res.Articles += len(articles)
	}
	doc.TotalCompanies = len(doc.Companies)
	res.Companies = doc.TotalCompanies
	log.Info().Str("week", week).Int("companies", res.Companies).Int("excluded", res.Excluded).
		Int("articles", res.Articles).Msg("news collected")

	if opts.Ticker != "" {
		err = p.store.MergeCompanies(ctx, week, doc.Companies)
	} else {
		err = p.store.ReplaceEarnings(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	if opts.RunSentiment {
		if err := p.score(ctx, doc, opts.Ticker != "", res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// rescore re-runs sentiment over the stored snapshot without fetching.
func (p *Pipeline) rescore(ctx context.Context, opts Options) (*Result, error) {
	doc, err := p.store.Earnings(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Week: doc.EarningsWeek, Scheduled: len(doc.Companies), Companies: len(doc.Companies)}

	single := opts.Ticker != ""
	if single {
		ticker := utils.NormalizeTicker(opts.Ticker)
		c, ok := doc.Companies[ticker]
		if !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotReporting, ticker, doc.EarningsWeek)
		}
		doc.Companies = map[string]models.EarningsCompany{ticker: c}
		res.Companies = 1
	}
	for _, c := range doc.Companies {
		res.Articles += len(c.Articles)
	}

	if opts.RunSentiment {
		if err := p.score(ctx, doc, single, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Pipeline) score(ctx context.Context, doc *models.EarningsDocument, merge bool, res *Result) error {
	sent, err := p.analyzer.Analyze(ctx, doc)
	if err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}
	if merge {
		err = p.store.MergeSentiment(ctx, sent)
	} else {
		err = p.store.SaveSentiment(ctx, sent)
	}
	if err != nil {
		return err
	}
	res.Analyzed = len(sent.Results)
	return nil
}

// dedupeEvents keeps the first report per ticker, ordered by date then
// ticker.
func dedupeEvents(events []models.EarningsEvent) []models.EarningsEvent {
	seen := make(map[string]bool, len(events))
	out := make([]models.EarningsEvent, 0, len(events))
	for _, ev := range events {
		if seen[ev.Ticker] {
			continue
		}
		seen[ev.Ticker] = true
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

func findEvent(events []models.EarningsEvent, ticker string) (models.EarningsEvent, bool) {
	for _, ev := range events {
		if utils.NormalizeTicker(ev.Ticker) == ticker {
			return ev, true
		}
	}
	return models.EarningsEvent{}, false
}
