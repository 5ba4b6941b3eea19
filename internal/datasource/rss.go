package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// DefaultRSSTemplate is Yahoo Finance's per-symbol headline feed. %s is the
// Yahoo symbol.
const DefaultRSSTemplate = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// RSS fetches company headlines from a per-symbol RSS feed.
type RSS struct {
	urlTemplate string
	cache       *Cache
	limiter     *rate.Limiter
	parser      *gofeed.Parser
}

// NewRSS creates an RSS news source. An empty template uses DefaultRSSTemplate.
func NewRSS(urlTemplate string) *RSS {
	if urlTemplate == "" {
		urlTemplate = DefaultRSSTemplate
	}
	return &RSS{
		urlTemplate: urlTemplate,
		cache:       NewCache(10 * time.Minute),
		limiter:     rate.NewLimiter(rate.Limit(2), 2), // conservative: 2 req/s
		parser:      gofeed.NewParser(),
	}
}

// Name returns the data source name.
func (r *RSS) Name() string { return "Yahoo Finance RSS" }

// CompanyNews returns feed items for ticker published between from and to.
// Items without a publish date are kept.
func (r *RSS) CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsArticle, error) {
	symbol := utils.ToYahooSymbol(ticker)

	var all []models.NewsArticle
	if cached, ok := r.cache.Get(symbol); ok {
		all = cached.([]models.NewsArticle)
	} else {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		feed, err := r.parser.ParseURLWithContext(fmt.Sprintf(r.urlTemplate, symbol), ctx)
		if err != nil {
			return nil, fmt.Errorf("parse RSS %s: %w", symbol, err)
		}
		all = feedArticles(feed, r.Name())
		r.cache.Set(symbol, all)
	}

	articles := make([]models.NewsArticle, 0, len(all))
	for _, a := range all {
		if a.Datetime != 0 && (a.Published().Before(from) || a.Published().After(to)) {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// feedArticles converts parsed feed items, dropping items without a link.
func feedArticles(feed *gofeed.Feed, source string) []models.NewsArticle {
	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		a := models.NewsArticle{
			Headline: strings.TrimSpace(item.Title),
			URL:      item.Link,
			Source:   source,
			Summary:  cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.Datetime = item.PublishedParsed.Unix()
		}
		articles = append(articles, a)
	}
	return articles
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
