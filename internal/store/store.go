// Package store persists earnings snapshots, their articles and sentiment
// results in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// ErrNoData is returned when nothing has been stored yet.
var ErrNoData = errors.New("store: no data available")

// ErrNotFound is returned when a ticker is not part of the stored week.
var ErrNotFound = errors.New("store: company not found")

// Meta keys.
const (
	metaEarningsWeek      = "earnings_week"
	metaGeneratedAt       = "generated_at"
	metaSentimentTime     = "sentiment_timestamp"
	metaSentimentWeek     = "sentiment_week"
	metaSentimentAnalyzed = "sentiment_total"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath. ":memory:" gives a
// private in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	// One connection serializes writers and keeps :memory: a single database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		ticker TEXT PRIMARY KEY,
		earnings_date TEXT NOT NULL,
		earnings_day TEXT NOT NULL,
		article_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL REFERENCES companies(ticker) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		headline TEXT,
		url TEXT NOT NULL,
		source TEXT,
		summary TEXT,
		datetime INTEGER
	);

	CREATE TABLE IF NOT EXISTS sentiment (
		ticker TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		sentiment_score REAL NOT NULL,
		articles_analyzed INTEGER NOT NULL,
		total_articles INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_ticker ON articles(ticker, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceEarnings stores doc as the current week, discarding the previous
// week's companies, articles and sentiment.
func (s *Store) ReplaceEarnings(ctx context.Context, doc *models.EarningsDocument) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{`DELETE FROM articles`, `DELETE FROM companies`, `DELETE FROM sentiment`,
			`DELETE FROM meta WHERE key LIKE 'sentiment_%'`} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		if err := upsertCompanies(ctx, tx, doc.Companies); err != nil {
			return err
		}
		return setMeta(ctx, tx, map[string]string{
			metaEarningsWeek: doc.EarningsWeek,
			metaGeneratedAt:  generatedAt(doc),
		})
	})
}

// MergeCompanies upserts companies into the stored week, replacing their
// articles and leaving all other companies untouched.
func (s *Store) MergeCompanies(ctx context.Context, week string, companies map[string]models.EarningsCompany) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCompanies(ctx, tx, companies); err != nil {
			return err
		}
		meta := map[string]string{metaGeneratedAt: time.Now().UTC().Format(time.RFC3339)}
		if week != "" {
			meta[metaEarningsWeek] = week
		}
		return setMeta(ctx, tx, meta)
	})
}

func upsertCompanies(ctx context.Context, tx *sql.Tx, companies map[string]models.EarningsCompany) error {
	for ticker, c := range companies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO companies (ticker, earnings_date, earnings_day, article_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(ticker) DO UPDATE SET
				earnings_date = excluded.earnings_date,
				earnings_day = excluded.earnings_day,
				article_count = excluded.article_count
		`, ticker, c.EarningsDate, c.EarningsDay, len(c.Articles))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", ticker, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE ticker = ?`, ticker); err != nil {
			return err
		}
		for i, a := range c.Articles {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO articles (ticker, position, headline, url, source, summary, datetime)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, ticker, i, a.Headline, a.URL, a.Source, a.Summary, a.Datetime)
			if err != nil {
				return fmt.Errorf("insert article %s#%d: %w", ticker, i, err)
			}
		}
	}
	return nil
}

// Earnings returns the stored week with every company's articles.
func (s *Store) Earnings(ctx context.Context) (*models.EarningsDocument, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	week, ok := meta[metaEarningsWeek]
	if !ok {
		return nil, ErrNoData
	}

	doc := &models.EarningsDocument{
		EarningsWeek: week,
		GeneratedAt:  meta[metaGeneratedAt],
		Companies:    make(map[string]models.EarningsCompany),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ticker, earnings_date, earnings_day FROM companies`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var ticker string
		var c models.EarningsCompany
		if err := rows.Scan(&ticker, &c.EarningsDate, &c.EarningsDay); err != nil {
			rows.Close()
			return nil, err
		}
		doc.Companies[ticker] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	articles, err := s.articles(ctx, "")
	if err != nil {
		return nil, err
	}
	for ticker, list := range articles {
		c, ok := doc.Companies[ticker]
		if !ok {
			continue
		}
		withArticles(&c, list)
		doc.Companies[ticker] = c
	}
	doc.TotalCompanies = len(doc.Companies)
	return doc, nil
}

// Company returns one stored company.
func (s *Store) Company(ctx context.Context, ticker string) (*models.EarningsCompany, error) {
	var c models.EarningsCompany
	err := s.db.QueryRowContext(ctx,
		`SELECT earnings_date, earnings_day FROM companies WHERE ticker = ?`, ticker,
	).Scan(&c.EarningsDate, &c.EarningsDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	}
	if err != nil {
		return nil, err
	}

	articles, err := s.articles(ctx, ticker)
	if err != nil {
		return nil, err
	}
	withArticles(&c, articles[ticker])
	return &c, nil
}

// Companies lists the stored week joined with sentiment, highest score
// first. Companies without a sentiment row count as 0.
func (s *Store) Companies(ctx context.Context) (*models.CompanyList, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	week, ok := meta[metaEarningsWeek]
	if !ok {
		return nil, ErrNoData
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.ticker, c.earnings_date, c.earnings_day, c.article_count,
			COALESCE(s.sentiment_score, 0), COALESCE(s.articles_analyzed, 0)
		FROM companies c
		LEFT JOIN sentiment s ON s.ticker = c.ticker
		ORDER BY COALESCE(s.sentiment_score, 0) DESC, c.ticker ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := &models.CompanyList{EarningsWeek: week, Companies: []models.CompanySummary{}}
	for rows.Next() {
		var c models.CompanySummary
		if err := rows.Scan(&c.Ticker, &c.EarningsDate, &c.EarningsDay, &c.ArticleCount,
			&c.SentimentScore, &c.ArticlesAnalyzed); err != nil {
			return nil, err
		}
		list.Companies = append(list.Companies, c)
	}
	list.Total = len(list.Companies)
	return list, rows.Err()
}

// SaveSentiment replaces all stored sentiment with doc.
func (s *Store) SaveSentiment(ctx context.Context, doc *models.SentimentDocument) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sentiment`); err != nil {
			return err
		}
		if err := upsertSentiment(ctx, tx, doc.Results, 0); err != nil {
			return err
		}
		return setSentimentMeta(ctx, tx, doc)
	})
}

// MergeSentiment upserts doc's records, keeping the rest. New tickers are
// appended after the existing ones.
func (s *Store) MergeSentiment(ctx context.Context, doc *models.SentimentDocument) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM sentiment`).Scan(&next); err != nil {
			return err
		}
		if err := upsertSentiment(ctx, tx, doc.Results, next); err != nil {
			return err
		}
		return setSentimentMeta(ctx, tx, doc)
	})
}

func upsertSentiment(ctx context.Context, tx *sql.Tx, records []models.SentimentRecord, offset int) error {
	for i, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sentiment (ticker, position, sentiment_score, articles_analyzed, total_articles)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(ticker) DO UPDATE SET
				sentiment_score = excluded.sentiment_score,
				articles_analyzed = excluded.articles_analyzed,
				total_articles = excluded.total_articles
		`, r.Ticker, offset+i, r.SentimentScore, r.ArticlesAnalyzed, r.TotalArticlesAvailable)
		if err != nil {
			return fmt.Errorf("upsert sentiment %s: %w", r.Ticker, err)
		}
	}
	return nil
}

func setSentimentMeta(ctx context.Context, tx *sql.Tx, doc *models.SentimentDocument) error {
	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentiment`).Scan(&total); err != nil {
		return err
	}
	ts := doc.AnalysisTimestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	return setMeta(ctx, tx, map[string]string{
		metaSentimentTime:     ts,
		metaSentimentWeek:     doc.EarningsWeek,
		metaSentimentAnalyzed: fmt.Sprint(total),
	})
}

// Sentiment returns the stored sentiment batch in its saved order.
func (s *Store) Sentiment(ctx context.Context) (*models.SentimentDocument, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	ts, ok := meta[metaSentimentTime]
	if !ok {
		return nil, ErrNoData
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, sentiment_score, articles_analyzed, total_articles
		FROM sentiment ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doc := &models.SentimentDocument{
		AnalysisTimestamp: ts,
		EarningsWeek:      meta[metaSentimentWeek],
		Results:           []models.SentimentRecord{},
	}
	for rows.Next() {
		var r models.SentimentRecord
		if err := rows.Scan(&r.Ticker, &r.SentimentScore, &r.ArticlesAnalyzed, &r.TotalArticlesAvailable); err != nil {
			return nil, err
		}
		doc.Results = append(doc.Results, r)
	}
	doc.TotalCompaniesAnalyzed = len(doc.Results)
	return doc, rows.Err()
}

// NeutralSentiment derives a placeholder batch from the stored earnings when
// no analysis has run: every company scores 0 with nothing analyzed.
func (s *Store) NeutralSentiment(ctx context.Context) (*models.SentimentDocument, error) {
	doc, err := s.Earnings(ctx)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(doc.Companies))
	for t := range doc.Companies {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := &models.SentimentDocument{
		AnalysisTimestamp: doc.GeneratedAt,
		EarningsWeek:      doc.EarningsWeek,
		Results:           make([]models.SentimentRecord, 0, len(tickers)),
	}
	for _, t := range tickers {
		out.Results = append(out.Results, models.SentimentRecord{
			Ticker:                 t,
			TotalArticlesAvailable: doc.Companies[t].ArticleCount,
		})
	}
	out.TotalCompaniesAnalyzed = len(out.Results)
	return out, nil
}

// LastUpdate returns when the earnings snapshot was last written.
func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return time.Time{}, err
	}
	v, ok := meta[metaGeneratedAt]
	if !ok {
		return time.Time{}, ErrNoData
	}
	return time.Parse(time.RFC3339, v)
}

// ── helpers ──

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: %w", err)
	}
	return tx.Commit()
}

func (s *Store) meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func setMeta(ctx context.Context, tx *sql.Tx, kv map[string]string) error {
	for k, v := range kv {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// articles loads stored articles grouped by ticker, for one ticker or all.
func (s *Store) articles(ctx context.Context, ticker string) (map[string][]models.NewsArticle, error) {
	query := `SELECT ticker, headline, url, source, summary, datetime FROM articles`
	var args []any
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY ticker, position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.NewsArticle)
	for rows.Next() {
		var t string
		var headline, source, summary sql.NullString
		var a models.NewsArticle
		if err := rows.Scan(&t, &headline, &a.URL, &source, &summary, &a.Datetime); err != nil {
			return nil, err
		}
		a.Headline, a.Source, a.Summary = headline.String, source.String, summary.String
		out[t] = append(out[t], a)
	}
	return out, rows.Err()
}

func withArticles(c *models.EarningsCompany, articles []models.NewsArticle) {
	c.Articles = articles
	c.ArticleCount = len(articles)
	c.URLs = make([]string, len(articles))
	for i, a := range articles {
		c.URLs[i] = a.URL
	}
}

func generatedAt(doc *models.EarningsDocument) string {
	if strings.TrimSpace(doc.GeneratedAt) != "" {
		return doc.GeneratedAt
	}
	return time.Now().UTC().Format(time.RFC3339)
}
