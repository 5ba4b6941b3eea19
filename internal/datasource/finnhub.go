package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// Finnhub fetches company news from the Finnhub REST API.
type Finnhub struct {
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewFinnhub creates a Finnhub news source. interval is the minimum spacing
// between requests; the free tier allows 60 calls per minute.
func NewFinnhub(baseURL, apiKey string, interval time.Duration) *Finnhub {
	return &Finnhub{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: newLimiter(interval),
	}
}

// Name returns the data source name.
func (f *Finnhub) Name() string { return "Finnhub" }

type finnhubArticle struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// CompanyNews returns Finnhub's articles for ticker published between from
// and to. Articles without a URL are dropped.
func (f *Finnhub) CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsArticle, error) {
	if f.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", utils.NormalizeTicker(ticker))
	q.Set("from", from.Format(utils.DateLayout))
	q.Set("to", to.Format(utils.DateLayout))
	q.Set("token", f.apiKey)

	body, _, err := doGet(ctx, f.baseURL+"/company-news?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("finnhub news %s: %w", ticker, err)
	}
	defer body.Close()

	var raw []finnhubArticle
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: finnhub news %s: %v", ErrBadResponse, ticker, err)
	}

	articles := make([]models.NewsArticle, 0, len(raw))
	for _, a := range raw {
		if a.URL == "" {
			continue
		}
		articles = append(articles, models.NewsArticle{
			Headline: a.Headline,
			URL:      a.URL,
			Source:   a.Source,
			Summary:  a.Summary,
			Datetime: a.Datetime,
		})
	}
	return articles, nil
}
