package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/datasource"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/llm"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/pipeline"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/sentiment"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/store"
)

// app is the backend object graph shared by serve and refresh.
type app struct {
	store    *store.Store
	news     *datasource.Aggregator
	analyzer *sentiment.Analyzer
	pipeline *pipeline.Pipeline
	runner   *pipeline.Runner
}

// newApp opens the store and wires sources, analyzer and pipeline. Runs
// started by the runner derive from ctx.
func newApp(ctx context.Context) (*app, error) {
	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	sources := []datasource.NewsSource{
		datasource.NewFinnhub(cfg.Sources.FinnhubURL, cfg.Sources.FinnhubKey,
			time.Duration(cfg.Sources.FinnhubIntervalMS)*time.Millisecond),
	}
	if cfg.Sources.RSSEnabled {
		sources = append(sources, datasource.NewRSS(cfg.Sources.RSSURLTemplate))
	}
	news := datasource.NewAggregator(cfg.Analysis.Concurrency, sources...)

	analyzer := newAnalyzer()
	p := pipeline.New(
		datasource.NewDolthub(cfg.Sources.DolthubURL),
		news, st, analyzer,
		pipeline.WithNewsWindow(cfg.Sources.NewsDaysBack),
	)
	runner := pipeline.NewRunner(ctx, p, func(ctx context.Context) bool {
		_, err := st.Earnings(ctx)
		return err == nil
	})

	return &app{store: st, news: news, analyzer: analyzer, pipeline: p, runner: runner}, nil
}

// Close waits for in-flight runs and closes the store.
func (a *app) Close() error {
	a.runner.Wait()
	return a.store.Close()
}

// newAnalyzer builds the sentiment analyzer for the configured LLM. A missing
// API key falls back to keyword scoring.
func newAnalyzer() *sentiment.Analyzer {
	opts := []sentiment.Option{
		sentiment.WithConcurrency(cfg.Analysis.Concurrency),
		sentiment.WithInterval(time.Duration(cfg.Analysis.IntervalMS) * time.Millisecond),
		sentiment.WithChatOptions(llm.ChatOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
	}

	provider, err := llm.NewFromConfig(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("no API key configured, scoring with keywords")
		return sentiment.NewAnalyzer(nil, opts...)
	case err != nil:
		log.Warn().Err(err).Msg("LLM setup failed, scoring with keywords")
		return sentiment.NewAnalyzer(nil, opts...)
	}
	return sentiment.NewAnalyzer(provider, opts...)
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Earnings week:     %s\n", res.Week)
	fmt.Printf("Scheduled:         %d\n", res.Scheduled)
	fmt.Printf("Companies stored:  %d (excluded without news: %d)\n", res.Companies, res.Excluded)
	fmt.Printf("Articles:          %d\n", res.Articles)
	fmt.Printf("Scored:            %d\n", res.Analyzed)
	fmt.Printf("Took:              %s\n", res.Duration.Round(time.Millisecond))
}
