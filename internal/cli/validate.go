package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sharkusmanch/duplicity-runner/internal/config"
	"github.com/sharkusmanch/duplicity-runner/internal/http"
	"github.com/sharkusmanch/duplicity-runner/internal/metrics"
	"github.com/sharkusmanch/duplicity-runner/internal/notify"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test connectivity",
		Long: `Validate the configuration file and test connectivity to external services.

This checks:
- Config file syntax
- Duplicity binary availability and version
- Pushgateway connectivity (if enabled)
- Apprise server connectivity (if enabled)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// Load config
	fmt.Println("Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Printf("  ✓ Config file syntax valid\n")

	// Display config values
	configPath, _ := config.DefaultConfigPath()
	if cfgFile != "" {
		configPath = cfgFile
	}
	fmt.Printf("  Config file: %s\n", configPath)
	fmt.Printf("  Source: %s\n", cfg.Source)
	fmt.Printf("  Target: file://%s\n", cfg.Target)
	if len(cfg.Exclude) > 0 {
		fmt.Printf("  Excluded subdirectories: %v\n", cfg.Exclude)
	}
	fmt.Printf("  Full backup every: %s\n", cfg.FullEvery)
	fmt.Printf("  Verify after backup: %t\n", cfg.VerifyAfterBackup)
	if cfg.Passphrase != "" {
		fmt.Printf("  Encryption: enabled (passphrase set)\n")
	} else {
		fmt.Printf("  Encryption: disabled\n")
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: enabled\n")
		fmt.Printf("  Pushgateway URL: %s\n", cfg.Metrics.PushgatewayURL)
	} else {
		fmt.Printf("  Metrics: disabled\n")
	}
	if cfg.Apprise.Enabled {
		fmt.Printf("  Notifications: enabled\n")
		fmt.Printf("  Apprise URL: %s\n", cfg.Apprise.URL)
		fmt.Printf("  Notification level: %s\n", cfg.Apprise.Notify)
	} else {
		fmt.Printf("  Notifications: disabled\n")
	}
	fmt.Println()

	// Check duplicity
	fmt.Println("Checks:")
	logger, _ := setupLogging(cfg)
	tool := newTool(cfg, logger)

	if !tool.IsInstalled(ctx) {
		fmt.Printf("  ✗ Duplicity binary: not found or not executable\n")
	} else {
		v, _ := tool.Version(ctx)
		fmt.Printf("  ✓ Duplicity binary found: %s\n", v)
	}

	// Create HTTP client
	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  1, // No retries for validation
			InitialDelay: time.Second,
			MaxDelay:     time.Second,
		}),
		http.WithLogger(logger),
	)

	// Check pushgateway if enabled
	if cfg.Metrics.Enabled {
		pushgatewayClient := metrics.NewPushgatewayClient(
			cfg.Metrics.PushgatewayURL,
			metrics.WithHTTPClient(httpClient),
			metrics.WithLogger(logger),
		)

		if err := pushgatewayClient.Validate(ctx); err != nil {
			fmt.Printf("  ✗ Pushgateway: %v\n", err)
		} else {
			fmt.Printf("  ✓ Pushgateway reachable\n")
		}
	}

	// Check apprise if enabled
	if cfg.Apprise.Enabled {
		appriseClient := notify.NewAppriseClient(
			cfg.Apprise.URL,
			cfg.Apprise.Key,
			notify.WithHTTPClient(httpClient),
			notify.WithLogger(logger),
		)

		if err := appriseClient.Validate(ctx); err != nil {
			fmt.Printf("  ✗ Apprise server: %v\n", err)
		} else {
			fmt.Printf("  ✓ Apprise server reachable\n")
		}
	}

	fmt.Println()
	fmt.Println("Validation complete.")
	return nil
}
