package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// Dolthub reads the post-no-preference earnings calendar through DoltHub's
// SQL API.
type Dolthub struct {
	baseURL string
	cache   *Cache
}

// NewDolthub creates an earnings source for the given repository API URL,
// e.g. https://www.dolthub.com/api/v1alpha1/post-no-preference/earnings/master.
func NewDolthub(baseURL string) *Dolthub {
	return &Dolthub{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   NewCache(30 * time.Minute),
	}
}

// Name returns the data source name.
func (d *Dolthub) Name() string { return "DoltHub Earnings Calendar" }

type dolthubResponse struct {
	Status  string            `json:"query_execution_status"`
	Message string            `json:"query_execution_message"`
	Rows    *[]map[string]any `json:"rows"`
}

// EarningsWeek returns every report dated within [start, end], ordered by date.
// Rows with an unparseable date or an empty symbol are skipped.
func (d *Dolthub) EarningsWeek(ctx context.Context, start, end time.Time) ([]models.EarningsEvent, error) {
	from, to := start.Format(utils.DateLayout), end.Format(utils.DateLayout)
	cacheKey := "earnings:" + from + ":" + to
	if cached, ok := d.cache.Get(cacheKey); ok {
		return cached.([]models.EarningsEvent), nil
	}

	query := fmt.Sprintf("SELECT * FROM earnings_calendar WHERE date >= '%s' AND date <= '%s' ORDER BY date ASC", from, to)
	body, _, err := doGet(ctx, d.baseURL+"?q="+url.QueryEscape(query), map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("dolthub earnings %s..%s: %w", from, to, err)
	}
	defer body.Close()

	var resp dolthubResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("dolthub earnings: decode: %w", err)
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "success") {
		return nil, fmt.Errorf("%w: dolthub query %s: %s", ErrBadResponse, resp.Status, resp.Message)
	}
	if resp.Rows == nil {
		return nil, fmt.Errorf("%w: dolthub response has no rows", ErrBadResponse)
	}

	events := make([]models.EarningsEvent, 0, len(*resp.Rows))
	for _, row := range *resp.Rows {
		symbol, _ := row["act_symbol"].(string)
		dateStr, _ := row["date"].(string)
		symbol = strings.TrimSpace(symbol)
		date, err := time.ParseInLocation(utils.DateLayout, firstN(dateStr, len(utils.DateLayout)), utils.ET)
		if symbol == "" || err != nil {
			log.Debug().Str("symbol", symbol).Str("date", dateStr).Msg("skipping malformed earnings row")
			continue
		}
		events = append(events, models.EarningsEvent{
			Ticker: symbol,
			Date:   date,
			Day:    models.Weekday(date.Weekday().String()),
		})
	}

	d.cache.Set(cacheKey, events)
	return events, nil
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
