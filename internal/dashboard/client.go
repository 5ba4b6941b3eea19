// Package dashboard is the client side of sentimentcal: an HTTP client for
// the backend API and the per-session state behind the terminal calendar.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// ErrNoData is returned when the backend has no earnings or sentiment yet.
var ErrNoData = errors.New("dashboard: backend has no data yet")

// ErrNotReporting is returned when a company is not on the stored week.
var ErrNotReporting = errors.New("dashboard: company is not reporting earnings this week")

// APIError is a non-2xx backend answer other than the mapped 404s.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the sentimentcal API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the backend at baseURL, e.g.
// http://localhost:5000.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Sentiment fetches the sentiment batch. Individually malformed records are
// returned as rejections instead of failing the call.
func (c *Client) Sentiment(ctx context.Context) (*models.SentimentDocument, []models.Rejection, error) {
	data, err := c.get(ctx, "/api/sentiment", ErrNoData)
	if err != nil {
		return nil, nil, err
	}
	return models.DecodeSentimentDocument(data)
}

// Earnings fetches the stored earnings week.
func (c *Client) Earnings(ctx context.Context) (*models.EarningsDocument, error) {
	var doc models.EarningsDocument
	if err := c.getJSON(ctx, "/api/earnings", ErrNoData, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Names fetches the ticker → company name map.
func (c *Client) Names(ctx context.Context) (models.NameMap, error) {
	var names models.NameMap
	if err := c.getJSON(ctx, "/api/names", ErrNoData, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Company fetches one company. With fresh set the backend re-fetches its news.
func (c *Client) Company(ctx context.Context, ticker string, fresh bool) (*models.CompanyDetail, error) {
	path := "/api/company/" + url.PathEscape(ticker)
	if fresh {
		path += "?fetch=true"
	}
	var detail models.CompanyDetail
	if err := c.getJSON(ctx, path, ErrNotReporting, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Status fetches the backend refresh status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var st models.Status
	if err := c.getJSON(ctx, "/api/status", ErrNoData, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) getJSON(ctx context.Context, path string, notFound error, v any) error {
	data, err := c.get(ctx, path, notFound)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// get performs a GET and returns the envelope's data. A 404 becomes notFound.
func (c *Client) get(ctx context.Context, path string, notFound error) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode == http.StatusNotFound {
		if env.Error != "" {
			return nil, fmt.Errorf("%w: %s", notFound, env.Error)
		}
		return nil, notFound
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return env.Data, nil
}
