package duplicity

import (
	"context"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// MockCall records one commander invocation.
type MockCall struct {
	Args []string
	Env  map[string]string
}

// MockCommander is a mock implementation of domain.Commander for testing. It
// records every invocation so tests can assert on built argument lists, or on
// the executor never having been called at all.
type MockCommander struct {
	RunFunc func(ctx context.Context, args []string, env map[string]string) (int, error)

	// OutputLines is returned by Output when RunFunc does not override it.
	OutputLines []string

	// Calls stores all recorded invocations.
	Calls []MockCall
}

// Run records the invocation and calls the mock RunFunc.
func (m *MockCommander) Run(ctx context.Context, args []string, env map[string]string) (int, error) {
	m.Calls = append(m.Calls, MockCall{
		Args: append([]string(nil), args...),
		Env:  env,
	})
	if m.RunFunc != nil {
		return m.RunFunc(ctx, args, env)
	}
	return 0, nil
}

// Output returns the configured output lines.
func (m *MockCommander) Output() []string {
	return m.OutputLines
}

// Reset clears all recorded invocations.
func (m *MockCommander) Reset() {
	m.Calls = nil
}

// Ensure MockCommander implements domain.Commander.
var _ domain.Commander = (*MockCommander)(nil)

// MockTool is a mock implementation of domain.Tool for testing callers of
// the orchestration layer.
type MockTool struct {
	VerifyFunc      func(ctx context.Context, compareData bool) (domain.VerifyOutcome, error)
	BackupFunc      func(ctx context.Context, full bool) (domain.RunStatus, error)
	RestoreFunc     func(ctx context.Context, req domain.RestoreRequest) (domain.RunStatus, error)
	BackupsFunc     func(ctx context.Context) ([]domain.BackupEntry, error)
	IsInstalledFunc func(ctx context.Context) bool
	VersionFunc     func(ctx context.Context) (string, error)
	OutputFunc      func() []string
}

// Verify calls the mock VerifyFunc.
func (m *MockTool) Verify(ctx context.Context, compareData bool) (domain.VerifyOutcome, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, compareData)
	}
	return domain.NoChanges, nil
}

// Backup calls the mock BackupFunc.
func (m *MockTool) Backup(ctx context.Context, full bool) (domain.RunStatus, error) {
	if m.BackupFunc != nil {
		return m.BackupFunc(ctx, full)
	}
	return domain.RunStatus{}, nil
}

// Restore calls the mock RestoreFunc.
func (m *MockTool) Restore(ctx context.Context, req domain.RestoreRequest) (domain.RunStatus, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, req)
	}
	return domain.RunStatus{}, nil
}

// Backups calls the mock BackupsFunc.
func (m *MockTool) Backups(ctx context.Context) ([]domain.BackupEntry, error) {
	if m.BackupsFunc != nil {
		return m.BackupsFunc(ctx)
	}
	return []domain.BackupEntry{}, nil
}

// IsInstalled calls the mock IsInstalledFunc.
func (m *MockTool) IsInstalled(ctx context.Context) bool {
	if m.IsInstalledFunc != nil {
		return m.IsInstalledFunc(ctx)
	}
	return true
}

// Version calls the mock VersionFunc.
func (m *MockTool) Version(ctx context.Context) (string, error) {
	if m.VersionFunc != nil {
		return m.VersionFunc(ctx)
	}
	return "0.8.0", nil
}

// Output calls the mock OutputFunc.
func (m *MockTool) Output() []string {
	if m.OutputFunc != nil {
		return m.OutputFunc()
	}
	return nil
}

// Ensure MockTool implements domain.Tool.
var _ domain.Tool = (*MockTool)(nil)

// MockFS is a mock implementation of domain.FS for testing. Probes default to
// an existing, readable, empty directory.
type MockFS struct {
	ExistsFunc     func(path string) bool
	IsReadableFunc func(path string) bool
	IsEmptyFunc    func(path string) (bool, error)
}

// Exists calls the mock ExistsFunc.
func (m *MockFS) Exists(path string) bool {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(path)
	}
	return true
}

// IsReadable calls the mock IsReadableFunc.
func (m *MockFS) IsReadable(path string) bool {
	if m.IsReadableFunc != nil {
		return m.IsReadableFunc(path)
	}
	return true
}

// IsEmpty calls the mock IsEmptyFunc.
func (m *MockFS) IsEmpty(path string) (bool, error) {
	if m.IsEmptyFunc != nil {
		return m.IsEmptyFunc(path)
	}
	return true, nil
}

// Ensure MockFS implements domain.FS.
var _ domain.FS = (*MockFS)(nil)
