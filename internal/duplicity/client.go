package duplicity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// Client orchestrates duplicity for a single source/target pair. It is
// synchronous: every operation blocks on the external process for its full
// duration, and a Client must not run overlapping operations because the
// commander's output accessor is stateful per last run. Cancellation and
// timeouts stay with the caller-supplied context; this layer never retries.
type Client struct {
	commander domain.Commander
	fs        domain.FS
	parser    CatalogParser
	gate      *Gate
	options   *OptionSet
	builder   *Builder
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCommander sets the process executor.
func WithCommander(c domain.Commander) ClientOption {
	return func(cl *Client) {
		cl.commander = c
	}
}

// WithFS sets the filesystem probe.
func WithFS(fs domain.FS) ClientOption {
	return func(cl *Client) {
		cl.fs = fs
	}
}

// WithCatalogParser sets the collection-status parsing strategy.
func WithCatalogParser(p CatalogParser) ClientOption {
	return func(cl *Client) {
		cl.parser = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a Client backing up source into the local directory
// target. By default it shells out to duplicity from PATH and probes the
// filesystem through the os; tests substitute both through options.
func NewClient(source, target string, opts ...ClientOption) *Client {
	c := &Client{
		fs:     OSFS{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.commander == nil {
		c.commander = NewExecCommander(WithExecLogger(c.logger))
	}
	if c.parser == nil {
		c.parser = NewStatusParser(c.logger)
	}

	c.gate = NewGate(c.commander, WithGateLogger(c.logger))
	c.options = NewOptionSet(c.logger)
	c.builder = NewBuilder(source, target, c.options, c.gate, c.logger)

	return c
}

// SetPassphrase configures the GPG passphrase. A non-empty passphrase
// disables the no-encryption option and is transmitted to duplicity only via
// the environment.
func (c *Client) SetPassphrase(passphrase string) {
	c.builder.SetPassphrase(passphrase)
}

// SetExcludedSubdirectories configures source-relative paths excluded from
// every operation, in the given order.
func (c *Client) SetExcludedSubdirectories(paths []string) {
	c.builder.SetExcludes(paths)
}

// SetOptionEnabled toggles one of the registered optional flags.
func (c *Client) SetOptionEnabled(flag string, enabled bool) {
	c.options.SetEnabled(flag, enabled)
}

// IsInstalled reports whether duplicity responds to a version probe.
func (c *Client) IsInstalled(ctx context.Context) bool {
	return c.gate.IsInstalled(ctx)
}

// Version returns the probed duplicity version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	v, err := c.gate.Current(ctx)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Output returns the raw output lines of the last invocation.
func (c *Client) Output() []string {
	return c.commander.Output()
}

// Verify compares the backup at the target against the source.
func (c *Client) Verify(ctx context.Context, compareData bool) (domain.VerifyOutcome, error) {
	if _, err := c.gate.Current(ctx); err != nil {
		return domain.CorruptData, err
	}

	inv := c.builder.Verify(ctx, compareData)
	code, err := c.run(ctx, inv)
	if err != nil {
		return domain.CorruptData, err
	}

	outcome := InterpretVerify(code)
	c.logger.Info("verify finished", "exit_code", code, "outcome", outcome.String())
	return outcome, nil
}

// Backup runs an incremental backup, or a full one when full is set. The
// exit code is surfaced as a tagged status, not interpreted further.
func (c *Client) Backup(ctx context.Context, full bool) (domain.RunStatus, error) {
	if _, err := c.gate.Current(ctx); err != nil {
		return domain.RunStatus{Code: -1}, err
	}

	inv := c.builder.Backup(ctx, full)
	code, err := c.run(ctx, inv)
	if err != nil {
		return domain.RunStatus{Code: -1}, err
	}

	c.logger.Info("backup finished", "full", full, "exit_code", code)
	return domain.RunStatus{Code: code}, nil
}

// Restore restores the backup state at req.Time into req.Destination. The
// destination preconditions are validated before any process spawns.
func (c *Client) Restore(ctx context.Context, req domain.RestoreRequest) (domain.RunStatus, error) {
	if _, err := c.gate.Current(ctx); err != nil {
		return domain.RunStatus{Code: -1}, err
	}

	inv, err := c.builder.Restore(ctx, req, c.fs)
	if err != nil {
		return domain.RunStatus{Code: -1}, err
	}

	code, err := c.run(ctx, inv)
	if err != nil {
		return domain.RunStatus{Code: -1}, err
	}

	c.logger.Info("restore finished",
		"time", req.Time,
		"destination", req.Destination,
		"exit_code", code,
	)
	return domain.RunStatus{Code: code}, nil
}

// Backups lists the backup chain at the target in listing order. A failing
// collection-status yields an empty catalog, not an error: a fresh target
// with no backups yet is a valid state.
func (c *Client) Backups(ctx context.Context) ([]domain.BackupEntry, error) {
	if _, err := c.gate.Current(ctx); err != nil {
		return nil, err
	}

	inv := c.builder.CollectionStatus(ctx)
	code, err := c.run(ctx, inv)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		c.logger.Debug("collection-status failed, treating catalog as empty", "exit_code", code)
		return []domain.BackupEntry{}, nil
	}

	return c.parser.Parse(c.commander.Output()), nil
}

// run hands the invocation to the process executor.
func (c *Client) run(ctx context.Context, inv Invocation) (int, error) {
	code, err := c.commander.Run(ctx, inv.Args, inv.Env)
	if err != nil {
		return -1, fmt.Errorf("duplicity failed to run: %w", err)
	}
	return code, nil
}

// Ensure Client implements domain.Tool.
var _ domain.Tool = (*Client)(nil)
