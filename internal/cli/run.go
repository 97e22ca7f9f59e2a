package cli

import (
	"fmt"

	"github.com/sharkusmanch/duplicity-runner/internal/app"
	"github.com/sharkusmanch/duplicity-runner/internal/http"
	"github.com/sharkusmanch/duplicity-runner/internal/metrics"
	"github.com/sharkusmanch/duplicity-runner/internal/notify"
	"github.com/spf13/cobra"
)

var runFull bool

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single backup cycle and exit",
		Long: `Run a single backup cycle and exit.

The cycle lists the backup chain at the target, runs an incremental backup
(or a full one when the chain is empty, the newest full backup is stale, or
--full is given) and verifies the result when configured to.`,
		RunE: runRun,
	}

	cmd.Flags().BoolVar(&runFull, "full", false, "force a full backup")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	// Create HTTP client with retry config
	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithLogger(logger),
	)

	tool := newTool(cfg, logger)

	runnerOpts := []app.RunnerOption{
		app.WithTool(tool),
		app.WithLogger(logger),
	}

	// Create metrics pusher if enabled
	if cfg.Metrics.Enabled {
		metricsPusher := metrics.NewPushgatewayClient(
			cfg.Metrics.PushgatewayURL,
			metrics.WithHTTPClient(httpClient),
			metrics.WithLogger(logger),
		)
		runnerOpts = append(runnerOpts, app.WithMetricsPusher(metricsPusher))
	}

	// Create notifier if enabled
	if cfg.Apprise.Enabled {
		notifier := notify.NewAppriseClient(
			cfg.Apprise.URL,
			cfg.Apprise.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		)
		runnerOpts = append(runnerOpts, app.WithNotifier(notifier))
	}

	runner := app.NewRunner(cfg, runnerOpts...)

	result, err := runner.Run(cmd.Context(), runFull)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("backup completed with errors")
	}

	logger.Info("backup completed successfully",
		"duration", result.Duration,
	)

	return nil
}
