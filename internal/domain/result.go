// Package domain defines core business types and interfaces.
package domain

import "time"

// OperationType represents the type of duplicity operation.
type OperationType string

const (
	// OperationBackup represents a backup run (full or incremental).
	OperationBackup OperationType = "backup"
	// OperationVerify represents a verification run.
	OperationVerify OperationType = "verify"
	// OperationRestore represents a restore run.
	OperationRestore OperationType = "restore"
	// OperationCollectionStatus represents a catalog listing run.
	OperationCollectionStatus OperationType = "collection_status"
)

// String returns the string representation of the operation type.
func (o OperationType) String() string {
	return string(o)
}

// VerifyOutcome is the interpreted result of a verify run. Every exit code
// maps to exactly one outcome; unrecognized codes are CorruptData so that an
// unknown failure is never mistaken for success.
type VerifyOutcome int

const (
	// NoChanges means the backup matches the source.
	NoChanges VerifyOutcome = iota
	// IsChanged means the source has diverged from the backup.
	IsChanged
	// NoBackupFound means the target holds no backup chain.
	NoBackupFound
	// CorruptData means verification failed or returned an unknown code.
	CorruptData
)

// String returns the string representation of the verify outcome.
func (v VerifyOutcome) String() string {
	switch v {
	case NoChanges:
		return "no_changes"
	case IsChanged:
		return "is_changed"
	case NoBackupFound:
		return "no_backup_found"
	default:
		return "corrupt_data"
	}
}

// RunStatus is the tagged result of an execute or restore run. It carries the
// raw exit code so callers cannot mistake an unchecked integer for a boolean.
type RunStatus struct {
	Code int `json:"code"`
}

// OK reports whether the run exited successfully.
func (s RunStatus) OK() bool {
	return s.Code == 0
}

// BackupKind distinguishes full from incremental backup chains.
type BackupKind string

const (
	// KindFull is a self-contained full backup.
	KindFull BackupKind = "Full"
	// KindIncremental is a delta against a prior backup.
	KindIncremental BackupKind = "Incremental"
)

// BackupEntry is one row of a parsed collection-status catalog. Entries keep
// the order duplicity emitted them in; this layer does not re-sort.
type BackupEntry struct {
	Kind BackupKind `json:"kind"`
	Time time.Time  `json:"time"`
}

// RestoreRequest describes a restore to an empty local directory.
type RestoreRequest struct {
	// Time selects which backup state to restore.
	Time time.Time

	// Destination must exist, be readable and contain no entries. The
	// precondition is checked before any process is spawned.
	Destination string
}

// OperationResult records the outcome of a single duplicity operation for
// reporting and metrics.
type OperationResult struct {
	Operation OperationType `json:"operation"`
	Kind      BackupKind    `json:"kind,omitempty"`
	Success   bool          `json:"success"`
	ExitCode  int           `json:"exit_code"`
	Outcome   string        `json:"outcome,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// NewOperationResult creates a new OperationResult with the given operation type.
func NewOperationResult(op OperationType) *OperationResult {
	return &OperationResult{
		Operation: op,
		StartTime: time.Now(),
	}
}

// Complete marks the result as complete.
func (r *OperationResult) Complete(success bool, err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
	if err != nil {
		r.Error = err.Error()
	}
}

// RunResult contains the results of a complete backup cycle.
type RunResult struct {
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Success   bool             `json:"success"`
	DryRun    bool             `json:"dry_run"`
	Chain     []BackupEntry    `json:"chain,omitempty"`
	Backup    *OperationResult `json:"backup,omitempty"`
	Verify    *OperationResult `json:"verify,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// NewRunResult creates a new RunResult.
func NewRunResult(dryRun bool) *RunResult {
	return &RunResult{
		StartTime: time.Now(),
		DryRun:    dryRun,
		Errors:    make([]string, 0),
	}
}

// Complete marks the run as complete.
func (r *RunResult) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	r.Success = len(r.Errors) == 0
	if r.Backup != nil && !r.Backup.Success {
		r.Success = false
	}
	if r.Verify != nil && !r.Verify.Success {
		r.Success = false
	}
}

// AddError adds an error to the run result.
func (r *RunResult) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}
