package duplicity

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// CompareDataMinVersion is the first duplicity release where verify only
// compares file data when --compare-data is passed. Older releases always
// compare data regardless of the flag, so on a pre-0.7 installation a verify
// without compare-data still behaves as if it were requested. This layer
// passes the flag through when supported and does not paper over the old
// behavior.
var CompareDataMinVersion = Version{0, 7, 0}

// passphraseEnv is the environment variable duplicity reads the GPG
// passphrase from. The passphrase is never placed in the argument list, which
// would leak it via process listings.
const passphraseEnv = "PASSPHRASE"

// Invocation is a fully assembled, ready-to-execute duplicity command.
type Invocation struct {
	Args []string
	Env  map[string]string
}

// Builder assembles invocations for the four duplicity operations. Options
// and exclusions are prepended to every command; the passphrase, when set,
// rides along as an environment entry.
type Builder struct {
	options    *OptionSet
	gate       *Gate
	source     string
	target     string
	excludes   []string
	passphrase string
	logger     *slog.Logger
}

// NewBuilder creates a Builder for the given source directory and target
// directory. The target is addressed with a file:// scheme in built commands.
func NewBuilder(source, target string, options *OptionSet, gate *Gate, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		options: options,
		gate:    gate,
		source:  source,
		target:  target,
		logger:  logger,
	}
}

// SetExcludes replaces the list of excluded subdirectories. Paths are
// relative to the source; list order is preserved in built commands.
func (b *Builder) SetExcludes(paths []string) {
	b.excludes = append([]string(nil), paths...)
}

// SetPassphrase sets the passphrase carried in the environment of built
// commands. A non-empty passphrase implies encrypted backups, so it disables
// the no-encryption option; clearing it enables the option again.
func (b *Builder) SetPassphrase(passphrase string) {
	b.passphrase = passphrase
	b.options.SetEnabled(OptNoEncryption, passphrase == "")
}

// TargetURL returns the file:// address of the backup target.
func (b *Builder) TargetURL() string {
	return "file://" + b.target
}

// Verify builds a verification command. With compareData the file contents
// are compared, provided the installed duplicity supports the flag; see
// CompareDataMinVersion for the pre-0.7 caveat.
func (b *Builder) Verify(ctx context.Context, compareData bool) Invocation {
	args := b.base(ctx)
	args = append(args, "verify")
	if compareData {
		if b.gate.Supports(ctx, CompareDataMinVersion) {
			args = append(args, "--compare-data")
		} else {
			b.logger.Warn("compare-data flag not available locally, verify compares data unconditionally on this version",
				"requires", CompareDataMinVersion.String(),
			)
		}
	}
	args = append(args, b.TargetURL(), b.source)
	return Invocation{Args: args, Env: b.env()}
}

// Backup builds a backup command, incremental by default or full when
// requested.
func (b *Builder) Backup(ctx context.Context, full bool) Invocation {
	args := b.base(ctx)
	if full {
		args = append(args, "full")
	}
	args = append(args, b.source, b.TargetURL())
	return Invocation{Args: args, Env: b.env()}
}

// CollectionStatus builds a catalog listing command.
func (b *Builder) CollectionStatus(ctx context.Context) Invocation {
	args := b.base(ctx)
	args = append(args, "collection-status", b.TargetURL())
	return Invocation{Args: args, Env: b.env()}
}

// Restore builds a restore command after validating that the destination
// exists, is readable and is empty. A violated precondition returns an
// InvalidArgumentError naming the failed check; no process may be spawned for
// such a request.
func (b *Builder) Restore(ctx context.Context, req domain.RestoreRequest, fs domain.FS) (Invocation, error) {
	if !fs.Exists(req.Destination) {
		return Invocation{}, &domain.InvalidArgumentError{Path: req.Destination, Reason: domain.ReasonNotFound}
	}
	if !fs.IsReadable(req.Destination) {
		return Invocation{}, &domain.InvalidArgumentError{Path: req.Destination, Reason: domain.ReasonNotReadable}
	}
	empty, err := fs.IsEmpty(req.Destination)
	if err != nil {
		return Invocation{}, &domain.InvalidArgumentError{Path: req.Destination, Reason: domain.ReasonNotReadable, Err: err}
	}
	if !empty {
		return Invocation{}, &domain.InvalidArgumentError{Path: req.Destination, Reason: domain.ReasonNotEmpty}
	}

	args := b.base(ctx)
	args = append(args,
		"restore",
		"--restore-time", req.Time.Format(time.RFC3339),
		b.TargetURL(),
		req.Destination,
	)
	return Invocation{Args: args, Env: b.env()}, nil
}

// base returns the resolved option flags followed by the exclusion flags,
// shared by every operation.
func (b *Builder) base(ctx context.Context) []string {
	args := b.options.Resolve(ctx, b.gate)
	for _, path := range b.excludes {
		args = append(args, "--exclude", "**/"+path)
	}
	return args
}

// env returns the environment entries of a built command.
func (b *Builder) env() map[string]string {
	env := map[string]string{}
	if b.passphrase != "" {
		env[passphraseEnv] = b.passphrase
	}
	return env
}
