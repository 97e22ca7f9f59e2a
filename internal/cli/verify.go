package cli

import (
	"fmt"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
	"github.com/spf13/cobra"
)

var verifyCompareData bool

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the backup against the source",
		Long: `Compare the backup chain at the target against the source directory.

With --compare-data file contents are compared as well, not only metadata.
Note that duplicity releases before 0.7 always compare data, whether or not
the flag is given.`,
		RunE: runVerify,
	}

	cmd.Flags().BoolVar(&verifyCompareData, "compare-data", false, "compare file data, not only metadata")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	tool := newTool(cfg, logger)

	outcome, err := tool.Verify(cmd.Context(), verifyCompareData)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	switch outcome {
	case domain.NoChanges:
		fmt.Println("Backup verified: no changes.")
	case domain.IsChanged:
		fmt.Println("Backup verified: source has changed since the last backup.")
	case domain.NoBackupFound:
		fmt.Println("No backup found at the target.")
	case domain.CorruptData:
		return fmt.Errorf("verification failed: backup data may be corrupt")
	}

	return nil
}
