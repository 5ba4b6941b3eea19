package main

import (
	"github.com/spf13/cobra"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/pipeline"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// --- Refresh Command ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle against the local database",
	Long: `Fetch the target week's earnings schedule, collect news for every
reporting company, store the snapshot and score sentiment.

Examples:
  sentimentcal refresh
  sentimentcal refresh --weeks 0 --no-sentiment
  sentimentcal refresh --ticker AAPL
  sentimentcal refresh --use-existing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipeline.Options{
			WeeksAhead:   cfg.Analysis.WeeksAhead,
			RunSentiment: cfg.Analysis.RunSentiment,
		}
		if cmd.Flags().Changed("weeks") {
			opts.WeeksAhead, _ = cmd.Flags().GetInt("weeks")
		}
		if noSentiment, _ := cmd.Flags().GetBool("no-sentiment"); noSentiment {
			opts.RunSentiment = false
		}
		opts.UseExisting, _ = cmd.Flags().GetBool("use-existing")
		if ticker, _ := cmd.Flags().GetString("ticker"); ticker != "" {
			opts.Ticker = utils.NormalizeTicker(ticker)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	refreshCmd.Flags().Int("weeks", 1, "weeks ahead of the current week (0 = this week)")
	refreshCmd.Flags().String("ticker", "", "refresh a single company, merging into the stored week")
	refreshCmd.Flags().Bool("no-sentiment", false, "collect news without scoring it")
	refreshCmd.Flags().Bool("use-existing", false, "re-score the stored snapshot without fetching")
}
