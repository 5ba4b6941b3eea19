package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/calendar"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/dashboard"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/render"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/sentiment"
)

// --- Calendar Command ---

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show the earnings week from a running backend",
	Long: `Load sentiment, earnings days and company names from the backend and
draw the Monday to Friday calendar.

Examples:
  sentimentcal calendar
  sentimentcal calendar --search nv
  sentimentcal calendar --backend http://localhost:5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := newSession(cmd, nil)
		defer session.Close()

		if err := session.Load(cmd.Context()); err != nil {
			if errors.Is(err, dashboard.ErrNoData) {
				return fmt.Errorf("no data yet: run 'sentimentcal refresh' or wait for the backend update")
			}
			return err
		}

		search, _ := cmd.Flags().GetString("search")
		session.SetSearch(search)

		title := "Earnings week " + session.Week()
		if ghost := session.Ghost(); ghost != "" {
			title += fmt.Sprintf("   search: %s", ghost)
		} else if search != "" {
			title += fmt.Sprintf("   search: %s", search)
		}

		slots := calendar.Slots(session.View(), calendar.WeekStart(session.Week()), search == "")
		fmt.Println(render.Week(slots, render.Options{Title: title}))

		if rejected := session.Rejected(); len(rejected) > 0 {
			fmt.Printf("\n%d sentiment records were dropped as malformed.\n", len(rejected))
		}
		return nil
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Fetch fresh news for a reporting company and score it now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := newSession(cmd, newAnalyzer())
		defer session.Close()

		// Names are nice to have; the analysis itself only needs the company.
		_ = session.Load(cmd.Context())

		result, err := session.Analyze(cmd.Context(), args[0])
		if errors.Is(err, dashboard.ErrNotReporting) {
			return fmt.Errorf("%s is not reporting earnings this week", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Println(render.Live(result))
		return nil
	},
}

func init() {
	calendarCmd.Flags().String("search", "", "filter companies by ticker or name")
	for _, c := range []*cobra.Command{calendarCmd, analyzeCmd} {
		c.Flags().String("backend", "", "backend URL (default: dashboard.backend_url)")
	}
}

func newSession(cmd *cobra.Command, analyzer *sentiment.Analyzer) *dashboard.Session {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = cfg.Dashboard.BackendURL
	}
	return dashboard.NewSession(dashboard.NewClient(backend), analyzer)
}
