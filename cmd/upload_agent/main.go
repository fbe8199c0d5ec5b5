// Package main provides the entry point for the Poseidon upload agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/poseidon-uploader/internal/config"
	"github.com/jonathan/poseidon-uploader/internal/display"
	"github.com/jonathan/poseidon-uploader/internal/logging"
	"github.com/jonathan/poseidon-uploader/internal/orchestrator"
	"github.com/jonathan/poseidon-uploader/internal/poseidon"
	"github.com/jonathan/poseidon-uploader/internal/request"
	"github.com/jonathan/poseidon-uploader/internal/tts"
)

// cycleInterval separates full passes over all accounts.
const cycleInterval = 24 * time.Hour

var (
	configPath string
	useProxy   bool
	noProxy    bool
	runOnce    bool
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "upload_agent",
	Short: "Poseidon voice-upload automation agent",
	Long: `upload_agent automates the Poseidon campaign workflow for a set of
accounts: it authenticates each token, lists eligible audio campaigns, and
works through each campaign's quota by fetching scripts, synthesizing audio,
and uploading the result, pacing every step to stay within the API's limits.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run upload cycles for all configured accounts",
	Long: `Processes every token in the token file once per cycle. Cycles repeat
every 24 hours until interrupted; pass --once for a single cycle.`,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to JSON config file")
	runCmd.Flags().BoolVar(&useProxy, "proxy", false, "route accounts through the proxy pool")
	runCmd.Flags().BoolVar(&noProxy, "no-proxy", false, "force direct connections")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if useProxy {
		cfg.UseProxy = true
	}
	if noProxy {
		cfg.UseProxy = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := display.NewPrinter(os.Stdout)
	printer.Banner("POSEIDON AUTO UPLOAD VOICE")

	executor := request.NewExecutor(logger, cfg.MaxAttempts, cfg.InitialBackoff(), cfg.RateLimitBackoff())
	factory := func(token string, httpClient *http.Client, accountLogger *zap.Logger) orchestrator.CampaignAPI {
		return poseidon.NewClient(cfg.BaseURL, token, httpClient, executor, accountLogger)
	}
	synth := tts.NewGoogleSpeech(&http.Client{Timeout: cfg.SynthesisTimeout()}, cfg.SynthesisTimeout())

	runner := orchestrator.NewRunner(cfg, factory, synth, printer, logger)

	for {
		if err := runner.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, orchestrator.ErrNoAccounts) {
				logger.Error("cycle ended early", zap.Error(err))
			} else {
				logger.Error("cycle failed", zap.Error(err))
			}
		}
		if runOnce {
			return nil
		}
		logger.Info("cycle completed, waiting for next cycle", zap.Duration("interval", cycleInterval))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cycleInterval):
		}
	}
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
