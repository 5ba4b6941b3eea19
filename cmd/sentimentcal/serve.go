package main

import (
	"context"
	"errors"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/lukeacampbell/Stock-News-Sentiment/api"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/calendar"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/pipeline"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/scheduler"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/store"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the refresh scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := calendar.LoadNames(cfg.Sources.CompanyNamesFile)
		if err != nil {
			log.Warn().Err(err).Msg("company names unavailable, showing tickers only")
			names = models.NameMap{}
		}

		defaults := pipeline.Options{
			WeeksAhead:   cfg.Analysis.WeeksAhead,
			RunSentiment: cfg.Analysis.RunSentiment,
		}

		var sched *scheduler.Scheduler
		if cfg.Scheduler.Enabled {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			sched = scheduler.New(loc)
			err = sched.AddRefreshJob(cfg.Scheduler.RefreshInterval, func(ctx context.Context) error {
				_, err := a.runner.Run(ctx, defaults)
				if errors.Is(err, pipeline.ErrUpdateInProgress) {
					return nil
				}
				return err
			})
			if err != nil {
				return err
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()
		}

		srv, err := api.NewServer(cfg, api.Deps{
			Store:     a.store,
			Runner:    a.runner,
			News:      a.news,
			Scheduler: sched,
			Names:     names,
			Version:   version,
		})
		if err != nil {
			return err
		}

		if _, err := a.store.Earnings(ctx); errors.Is(err, store.ErrNoData) {
			if id, err := a.runner.Trigger(defaults); err == nil {
				log.Info().Str("run_id", id).Msg("no stored data, initial refresh started")
			}
		}

		log.Info().Str("addr", cfg.Addr()).Str("llm", a.analyzer.Backend()).
			Bool("scheduler", sched != nil).Msg("starting sentimentcal API server")
		err = srv.ListenAndServe(ctx, cfg.Addr())
		cancel()
		return err
	},
}
