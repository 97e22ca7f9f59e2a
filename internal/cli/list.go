package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the backup chain at the target",
		Long: `List all backup sets found at the target, in the order duplicity
reports them. An empty target is not an error.`,
		RunE: runList,
	}

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	tool := newTool(cfg, logger)

	entries, err := tool.Backups(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tTIME")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Kind, e.Time.Format(time.RFC3339))
	}
	return w.Flush()
}
