package datasource

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// Aggregator fetches news for many tickers concurrently from every configured
// source and merges the results.
type Aggregator struct {
	sources     []NewsSource
	concurrency int
}

// NewAggregator creates an aggregator over sources. concurrency bounds the
// number of tickers fetched at once.
func NewAggregator(concurrency int, sources ...NewsSource) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{sources: sources, concurrency: concurrency}
}

// Sources returns the registered news sources.
func (a *Aggregator) Sources() []NewsSource { return a.sources }

// CollectNews returns the merged articles for every ticker. A ticker whose
// sources all fail maps to an empty list; only cancellation of ctx is an
// error.
func (a *Aggregator) CollectNews(ctx context.Context, tickers []string, from, to time.Time) (map[string][]models.NewsArticle, error) {
	out := make(map[string][]models.NewsArticle, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, ticker := range tickers {
		g.Go(func() error {
			articles := a.CompanyNews(gctx, ticker, from, to)
			mu.Lock()
			out[ticker] = articles
			mu.Unlock()
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// CompanyNews merges every source's articles for one ticker, de-duplicated by
// URL and sorted newest first. Source failures are logged and skipped.
func (a *Aggregator) CompanyNews(ctx context.Context, ticker string, from, to time.Time) []models.NewsArticle {
	var merged []models.NewsArticle
	for _, src := range a.sources {
		articles, err := src.CompanyNews(ctx, ticker, from, to)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Str("source", src.Name()).Str("ticker", ticker).Msg("news fetch failed")
			}
			continue
		}
		merged = append(merged, articles...)
	}
	return dedupeArticles(merged)
}

// dedupeArticles keeps the first article seen per URL and sorts the result by
// publish time, newest first.
func dedupeArticles(articles []models.NewsArticle) []models.NewsArticle {
	seen := make(map[string]bool, len(articles))
	out := make([]models.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	sortArticlesByDate(out)
	return out
}

// sortArticlesByDate sorts articles by published date (newest first).
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Datetime > articles[j].Datetime
	})
}
