package sentiment

import (
	"context"
	"sort"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/llm"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// Analyzer scores companies with an LLM, or with keywords when it has none.
type Analyzer struct {
	provider    llm.Provider
	concurrency int
	limiter     *rate.Limiter
	chat        llm.ChatOptions
	now         func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConcurrency bounds the number of companies scored at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithInterval spaces LLM calls at least d apart.
func WithInterval(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithChatOptions sets the model, token limit and temperature of each call.
func WithChatOptions(opts llm.ChatOptions) Option {
	return func(a *Analyzer) { a.chat = opts }
}

// NewAnalyzer returns an analyzer backed by provider. A nil provider selects
// the keyword scorer.
func NewAnalyzer(provider llm.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:    provider,
		concurrency: 4,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		chat:        llm.ChatOptions{MaxTokens: 32},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backend names the scorer in use.
func (a *Analyzer) Backend() string {
	if a.provider == nil {
		return llm.ProviderKeyword
	}
	return a.provider.Name()
}

// ScoreCompany scores one company. It never fails: missing coverage and
// LLM errors both produce a neutral record.
//
//   - no articles: {0, 0, 0}
//   - no usable headline: {0, 0, total}
//   - LLM error: {0, 0, total}
//   - otherwise: {score, headlines, total}
func (a *Analyzer) ScoreCompany(ctx context.Context, ticker string, company models.EarningsCompany) models.SentimentRecord {
	total := len(company.Articles)
	rec := models.SentimentRecord{Ticker: ticker}
	if total == 0 {
		return rec
	}
	rec.TotalArticlesAvailable = total

	headlines := Headlines(company.Articles)
	if len(headlines) == 0 {
		log.Debug().Str("ticker", ticker).Int("articles", total).Msg("no usable headlines")
		return rec
	}

	if a.provider == nil {
		texts := make([]string, len(headlines))
		for i, h := range headlines {
			texts[i] = h.Text
		}
		rec.SentimentScore = float64(KeywordScore(texts))
		rec.ArticlesAnalyzed = len(headlines)
		return rec
	}

	if err := a.limiter.Wait(ctx); err != nil {
		log.Warn().Str("ticker", ticker).Err(err).Msg("sentiment call cancelled")
		return rec
	}

	opts := a.chat
	resp, err := a.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(SystemPrompt),
		llm.UserMessage(BuildPrompt(ticker, company, headlines)),
	}, &opts)
	if err != nil {
		log.Warn().Str("ticker", ticker).Str("provider", a.provider.Name()).Err(err).Msg("sentiment call failed")
		return rec
	}

	score := ParseScore(resp.Content)
	log.Debug().Str("ticker", ticker).Int("headlines", len(headlines)).Int("score", score).
		Dur("latency", resp.Latency).Msg("scored company")

	rec.SentimentScore = float64(score)
	rec.ArticlesAnalyzed = len(headlines)
	return rec
}

// Analyze scores every company of an earnings snapshot. Results are ordered
// by ticker. Only cancellation of ctx makes it fail.
func (a *Analyzer) Analyze(ctx context.Context, doc *models.EarningsDocument) (*models.SentimentDocument, error) {
	out := &models.SentimentDocument{
		AnalysisTimestamp: a.now().UTC().Format(time.RFC3339),
		Results:           []models.SentimentRecord{},
	}
	if doc == nil {
		return out, nil
	}
	out.EarningsWeek = doc.EarningsWeek

	tickers := make([]string, 0, len(doc.Companies))
	for t := range doc.Companies {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	results := make([]models.SentimentRecord, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.ScoreCompany(gctx, t, doc.Companies[t])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Results = results
	out.TotalCompaniesAnalyzed = len(results)
	log.Info().Str("week", doc.EarningsWeek).Int("companies", len(results)).
		Str("backend", a.Backend()).Msg("sentiment analysis complete")
	return out, nil
}
