package cli

import (
	"fmt"
	"time"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
	"github.com/spf13/cobra"
)

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore TIMESTAMP DESTINATION",
		Short: "Restore a past backup state into an empty directory",
		Long: `Restore the backup state at TIMESTAMP (RFC 3339, e.g.
2020-01-01T00:00:00Z) into DESTINATION.

The destination directory must already exist, be readable and be empty;
otherwise the command fails before duplicity is invoked.`,
		Args: cobra.ExactArgs(2),
		RunE: runRestore,
	}

	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	ts, err := time.Parse(time.RFC3339, args[0])
	if err != nil {
		return fmt.Errorf("invalid timestamp %q, expected RFC 3339: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	tool := newTool(cfg, logger)

	status, err := tool.Restore(cmd.Context(), domain.RestoreRequest{
		Time:        ts,
		Destination: args[1],
	})
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	if !status.OK() {
		return fmt.Errorf("restore exited with code %d", status.Code)
	}

	fmt.Printf("Restored backup state at %s into %s.\n", ts.Format(time.RFC3339), args[1])
	return nil
}
