// Package app provides the core application logic.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sharkusmanch/duplicity-runner/internal/config"
	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// Runner executes one backup cycle: inspect the backup chain, choose full or
// incremental, run the backup and optionally verify it afterwards. It is
// one-shot; scheduling and retries are outside this program.
type Runner struct {
	tool          domain.Tool
	metricsPusher domain.MetricsPusher
	notifier      domain.Notifier
	config        *config.Config
	logger        *slog.Logger
	hostname      string
	now           func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTool sets the duplicity orchestrator.
func WithTool(t domain.Tool) RunnerOption {
	return func(r *Runner) {
		r.tool = t
	}
}

// WithMetricsPusher sets the metrics pusher.
func WithMetricsPusher(m domain.MetricsPusher) RunnerOption {
	return func(r *Runner) {
		r.metricsPusher = m
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a new Runner.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	hostname, _ := os.Hostname()

	r := &Runner{
		config:   cfg,
		logger:   slog.Default(),
		hostname: hostname,
		notifier: &domain.NopNotifier{}, // Default to no-op
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes a single backup cycle. With forceFull the cycle starts a full
// backup regardless of the chain state.
func (r *Runner) Run(ctx context.Context, forceFull bool) (*domain.RunResult, error) {
	result := domain.NewRunResult(r.config.DryRun)

	r.logger.Info("starting backup run", "dry_run", r.config.DryRun, "force_full", forceFull)

	if !r.tool.IsInstalled(ctx) {
		return nil, &domain.ToolNotFoundError{Path: r.config.DuplicityPath}
	}

	chain, err := r.tool.Backups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup chain: %w", err)
	}
	result.Chain = chain

	full := forceFull || r.needsFull(chain)

	backupResult, err := r.runBackup(ctx, full)
	if err != nil {
		r.logger.Error("backup failed", "error", err)
		result.AddError(err)
	}
	result.Backup = backupResult

	if r.config.VerifyAfterBackup && backupResult != nil && backupResult.Success {
		verifyResult, err := r.runVerify(ctx)
		if err != nil {
			r.logger.Error("verify failed", "error", err)
			result.AddError(err)
		}
		result.Verify = verifyResult
	}

	result.Complete()

	// Push metrics
	if err := r.pushMetrics(ctx, result); err != nil {
		r.logger.Error("failed to push metrics", "error", err)
		result.AddError(err)
	}

	// Send notifications based on result and config
	if err := r.sendNotifications(ctx, result); err != nil {
		r.logger.Error("failed to send notification", "error", err)
	}

	r.logger.Info("backup run completed",
		"success", result.Success,
		"duration", result.Duration,
	)

	return result, nil
}

// needsFull reports whether the chain state calls for a fresh full backup:
// either no full exists yet, or the newest full is older than full_every.
func (r *Runner) needsFull(chain []domain.BackupEntry) bool {
	var lastFull *domain.BackupEntry
	for i := range chain {
		if chain[i].Kind == domain.KindFull {
			if lastFull == nil || chain[i].Time.After(lastFull.Time) {
				lastFull = &chain[i]
			}
		}
	}

	if lastFull == nil {
		r.logger.Info("no full backup found, starting a new chain")
		return true
	}

	age := r.now().Sub(lastFull.Time)
	if age > r.config.FullEvery {
		r.logger.Info("newest full backup is stale, starting a new chain",
			"age", age,
			"full_every", r.config.FullEvery,
		)
		return true
	}

	return false
}

// runBackup executes the backup operation.
func (r *Runner) runBackup(ctx context.Context, full bool) (*domain.OperationResult, error) {
	r.logger.Debug("starting backup", "full", full)

	result := domain.NewOperationResult(domain.OperationBackup)
	result.Kind = domain.KindIncremental
	if full {
		result.Kind = domain.KindFull
	}

	if r.config.DryRun {
		r.logger.Info("dry run: skipping backup")
		result.Complete(true, nil)
		return result, nil
	}

	status, err := r.tool.Backup(ctx, full)
	if err != nil {
		result.Complete(false, err)
		return result, fmt.Errorf("backup error: %w", err)
	}

	result.ExitCode = status.Code
	result.Complete(status.OK(), nil)

	if status.OK() {
		r.logger.Info("backup completed",
			"kind", result.Kind,
			"duration", result.Duration,
		)
	} else {
		r.logger.Warn("backup exited non-zero", "exit_code", status.Code)
		result.Error = fmt.Sprintf("duplicity exited with code %d", status.Code)
	}

	return result, nil
}

// runVerify verifies the backup after a successful run.
func (r *Runner) runVerify(ctx context.Context) (*domain.OperationResult, error) {
	r.logger.Debug("starting verify", "compare_data", r.config.CompareData)

	result := domain.NewOperationResult(domain.OperationVerify)

	if r.config.DryRun {
		r.logger.Info("dry run: skipping verify")
		result.Complete(true, nil)
		return result, nil
	}

	outcome, err := r.tool.Verify(ctx, r.config.CompareData)
	if err != nil {
		result.Complete(false, err)
		return result, fmt.Errorf("verify error: %w", err)
	}

	result.Outcome = outcome.String()

	// Right after a backup the source may already have moved on, so a
	// changed verification is expected churn, not a failure.
	switch outcome {
	case domain.NoChanges, domain.IsChanged:
		result.Complete(true, nil)
		r.logger.Info("verify completed", "outcome", outcome.String())
	default:
		result.Complete(false, fmt.Errorf("verify outcome: %s", outcome.String()))
		r.logger.Warn("verify reported a problem", "outcome", outcome.String())
	}

	return result, nil
}

// pushMetrics sends metrics to the metrics pusher.
func (r *Runner) pushMetrics(ctx context.Context, result *domain.RunResult) error {
	if r.metricsPusher == nil {
		return nil
	}

	metrics := domain.NewMetrics(r.hostname)
	metrics.ChainLength = len(result.Chain)

	if result.Backup != nil {
		metrics.AddResult(result.Backup)
	}
	if result.Verify != nil {
		metrics.AddResult(result.Verify)
	}

	return r.metricsPusher.Push(ctx, metrics)
}

// sendNotifications sends notifications based on the result and config.
func (r *Runner) sendNotifications(ctx context.Context, result *domain.RunResult) error {
	if r.notifier == nil {
		return nil
	}

	notifyLevel := r.config.Apprise.Notify

	var notification *domain.Notification
	switch {
	case !result.Success:
		notification = domain.ErrorNotification(
			"Duplicity Backup Failed",
			r.buildErrorMessage(result),
		)

	case notifyLevel == config.NotifyAlways:
		notification = domain.InfoNotification(
			"Duplicity Backup Completed",
			r.buildSuccessMessage(result),
		)
	}

	if notification == nil {
		return nil
	}

	return r.notifier.Notify(ctx, notification)
}

// buildErrorMessage builds an error notification message.
func (r *Runner) buildErrorMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup failed on %s.\n", r.hostname)

	if result.Backup != nil && !result.Backup.Success {
		msg += fmt.Sprintf("Backup error: %s\n", result.Backup.Error)
	}
	if result.Verify != nil && !result.Verify.Success {
		msg += fmt.Sprintf("Verify error: %s\n", result.Verify.Error)
	}

	for _, err := range result.Errors {
		msg += fmt.Sprintf("Error: %s\n", err)
	}

	return msg
}

// buildSuccessMessage builds a success notification message.
func (r *Runner) buildSuccessMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup completed successfully on %s.\n", r.hostname)

	if result.Backup != nil {
		msg += fmt.Sprintf("Kind: %s\n", result.Backup.Kind)
	}
	if result.Verify != nil {
		msg += fmt.Sprintf("Verify: %s\n", result.Verify.Outcome)
	}
	msg += fmt.Sprintf("Chain length: %d\n", len(result.Chain))
	msg += fmt.Sprintf("Duration: %s", result.Duration.Round(100*time.Millisecond))

	return msg
}
