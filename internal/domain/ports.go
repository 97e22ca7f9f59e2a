package domain

import "context"

// Commander runs an external command and captures its output. One Commander
// instance must not be shared across overlapping invocations: Output is
// stateful per last run.
type Commander interface {
	// Run executes the command with the given arguments and environment
	// entries, blocking until it exits. The environment map is passed to the
	// process atomically, never interpolated into a shell string. The exit
	// code is returned even when non-zero; err is reserved for failures to
	// start the process at all.
	Run(ctx context.Context, args []string, env map[string]string) (int, error)

	// Output returns the captured output lines of the most recent run.
	Output() []string
}

// FS probes the local filesystem for restore preconditions.
type FS interface {
	// Exists reports whether the path exists.
	Exists(path string) bool

	// IsReadable reports whether the path can be opened for reading.
	IsReadable(path string) bool

	// IsEmpty reports whether the directory holds no entries. The error is
	// non-nil when the answer is unknown, e.g. for an unreadable directory.
	IsEmpty(path string) (bool, error)
}

// Tool defines the high-level duplicity operations. The concrete
// implementation assembles invocations and interprets results; mocks stand in
// for it in tests.
type Tool interface {
	// Verify compares the backup against the source. With compareData the
	// file contents are compared as well, not only metadata; see the
	// version-dependent caveat documented on the implementation.
	Verify(ctx context.Context, compareData bool) (VerifyOutcome, error)

	// Backup runs an incremental backup, or a full one when full is set.
	Backup(ctx context.Context, full bool) (RunStatus, error)

	// Restore restores the state at req.Time into req.Destination.
	Restore(ctx context.Context, req RestoreRequest) (RunStatus, error)

	// Backups lists the backup chain found at the target. An empty catalog is
	// a valid state, not an error.
	Backups(ctx context.Context) ([]BackupEntry, error)

	// IsInstalled reports whether the duplicity binary responds to a version
	// probe.
	IsInstalled(ctx context.Context) bool

	// Version returns the probed duplicity version string.
	Version(ctx context.Context) (string, error)

	// Output returns the raw output lines of the last invocation.
	Output() []string
}
