// Command sentimentcal lays out the weekly earnings calendar ranked by news sentiment.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/dashboard"
	"github.com/lukeacampbell/Stock-News-Sentiment/internal/logging"
	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sentimentcal",
	Short: "Earnings calendar ranked by news sentiment",
	Long: `sentimentcal collects the companies reporting earnings in the coming
week, gathers their recent news, scores each company's coverage with an LLM,
and lays the result out as a Monday to Friday calendar.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logging.Setup(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sentimentcal %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and backend status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  sentimentcal System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (ET):     %s\n", utils.NowET().Format("2006-01-02 15:04 MST"))
		if cfg.File != "" {
			fmt.Printf("  Config file:   %s\n", cfg.File)
		}
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    Weeks ahead:   %d\n", cfg.Analysis.WeeksAhead)
		fmt.Printf("    Scheduler:     %v (every %s, %s)\n", cfg.Scheduler.Enabled, cfg.Scheduler.RefreshInterval, cfg.Scheduler.Timezone)
		fmt.Printf("    Database:      %s\n", cfg.Storage.Path)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			switch {
			case k.IsSet && k.EnvVar != "":
				status = fmt.Sprintf("set (%s %s: %s)", k.Source, k.EnvVar, k.Masked)
			case k.IsSet:
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			case k.Missing():
				status = "MISSING (required)"
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		backend, _ := cmd.Flags().GetString("backend")
		if backend == "" {
			backend = cfg.Dashboard.BackendURL
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		st, err := dashboard.NewClient(backend).Status(ctx)
		fmt.Printf("  Backend (%s):\n", backend)
		if err != nil {
			fmt.Printf("    unreachable: %v\n", err)
		} else {
			fmt.Printf("    Status:        %s\n", st.Status)
			fmt.Printf("    Data ready:    %v\n", st.DataReady)
			if st.LastUpdate != "" {
				fmt.Printf("    Last update:   %s\n", st.LastUpdate)
			}
			if st.LastError != "" {
				fmt.Printf("    Last error:    %s\n", st.LastError)
			}
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().String("backend", "", "backend URL (default: dashboard.backend_url)")
}
