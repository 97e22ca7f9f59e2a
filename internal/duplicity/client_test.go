package duplicity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// versionedCommander returns a MockCommander that answers the version probe
// and runs everything else through run.
func versionedCommander(version string, run func(args []string, env map[string]string) (int, error)) *MockCommander {
	m := &MockCommander{}
	m.RunFunc = func(ctx context.Context, args []string, env map[string]string) (int, error) {
		if len(args) == 1 && args[0] == "--version" {
			m.OutputLines = []string{"duplicity " + version}
			return 0, nil
		}
		if run != nil {
			return run(args, env)
		}
		return 0, nil
	}
	return m
}

// operationCalls filters out version probes from the recorded calls.
func operationCalls(m *MockCommander) []MockCall {
	var calls []MockCall
	for _, c := range m.Calls {
		if len(c.Args) == 1 && c.Args[0] == "--version" {
			continue
		}
		calls = append(calls, c)
	}
	return calls
}

func TestClient_Backup_FullCommandShape(t *testing.T) {
	commander := versionedCommander("0.8", nil)

	client := NewClient("/data", "/backup", WithCommander(commander))
	client.SetExcludedSubdirectories([]string{"cache", "tmp/data"})

	status, err := client.Backup(context.Background(), true)

	require.NoError(t, err)
	assert.True(t, status.OK())

	calls := operationCalls(commander)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"--no-encryption",
		"--exclude", "**/cache",
		"--exclude", "**/tmp/data",
		"full",
		"/data",
		"file:///backup",
	}, calls[0].Args)
}

func TestClient_Backup_NonZeroExitIsStatusNotError(t *testing.T) {
	commander := versionedCommander("0.8", func(args []string, env map[string]string) (int, error) {
		return 23, nil
	})

	client := NewClient("/data", "/backup", WithCommander(commander))

	status, err := client.Backup(context.Background(), false)

	require.NoError(t, err)
	assert.False(t, status.OK())
	assert.Equal(t, 23, status.Code)
}

func TestClient_Verify_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want domain.VerifyOutcome
	}{
		{"no changes", 0, domain.NoChanges},
		{"changed", 1, domain.IsChanged},
		{"no backup found", 30, domain.NoBackupFound},
		{"unknown code", 5, domain.CorruptData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commander := versionedCommander("0.8", func(args []string, env map[string]string) (int, error) {
				return tt.code, nil
			})

			client := NewClient("/data", "/backup", WithCommander(commander))

			outcome, err := client.Verify(context.Background(), false)

			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestClient_Verify_CompareDataGatedOnVersion(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		commander := versionedCommander("0.7.06", nil)
		client := NewClient("/data", "/backup", WithCommander(commander))

		_, err := client.Verify(context.Background(), true)

		require.NoError(t, err)
		calls := operationCalls(commander)
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Args, "--compare-data")
	})

	t.Run("too old for the flag", func(t *testing.T) {
		commander := versionedCommander("0.6.23", nil)
		client := NewClient("/data", "/backup", WithCommander(commander))

		_, err := client.Verify(context.Background(), true)

		require.NoError(t, err)
		calls := operationCalls(commander)
		require.Len(t, calls, 1)
		assert.NotContains(t, calls[0].Args, "--compare-data")
	})
}

func TestClient_Restore_Success(t *testing.T) {
	commander := versionedCommander("0.8", nil)
	when := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	client := NewClient("/data", "/backup",
		WithCommander(commander),
		WithFS(&MockFS{}),
	)

	status, err := client.Restore(context.Background(), domain.RestoreRequest{
		Time:        when,
		Destination: "/restore/here",
	})

	require.NoError(t, err)
	assert.True(t, status.OK())

	calls := operationCalls(commander)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"--no-encryption",
		"restore",
		"--restore-time", "2024-03-10T12:00:00Z",
		"file:///backup",
		"/restore/here",
	}, calls[0].Args)
}

func TestClient_Restore_PreconditionFailureSpawnsNothing(t *testing.T) {
	commander := versionedCommander("0.8", nil)

	client := NewClient("/data", "/backup",
		WithCommander(commander),
		WithFS(&MockFS{IsEmptyFunc: func(path string) (bool, error) { return false, nil }}),
	)

	_, err := client.Restore(context.Background(), domain.RestoreRequest{
		Time:        time.Now(),
		Destination: "/occupied",
	})

	var invalid *domain.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.ReasonNotEmpty, invalid.Reason)

	// Only the version probe ran; no restore process was spawned.
	assert.Empty(t, operationCalls(commander))
}

func TestClient_Backups_ParsesCatalog(t *testing.T) {
	commander := versionedCommander("0.8", nil)
	commander.RunFunc = func(ctx context.Context, args []string, env map[string]string) (int, error) {
		if len(args) == 1 && args[0] == "--version" {
			commander.OutputLines = []string{"duplicity 0.8"}
			return 0, nil
		}
		commander.OutputLines = []string{
			"Collection Status",
			" Full         Wed Jan  1 00:00:00 2020                 10",
			" Incremental  Thu Jan  2 03:04:05 2020                  3",
		}
		return 0, nil
	}

	client := NewClient("/data", "/backup", WithCommander(commander))

	entries, err := client.Backups(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.KindFull, entries[0].Kind)
	assert.Equal(t, domain.KindIncremental, entries[1].Kind)
}

func TestClient_Backups_NonZeroExitMeansEmptyCatalog(t *testing.T) {
	commander := versionedCommander("0.8", func(args []string, env map[string]string) (int, error) {
		return 23, nil
	})

	client := NewClient("/data", "/backup", WithCommander(commander))

	entries, err := client.Backups(context.Background())

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_OperationsFailWithoutTool(t *testing.T) {
	commander := &MockCommander{
		RunFunc: func(ctx context.Context, args []string, env map[string]string) (int, error) {
			return -1, errors.New("no such file")
		},
	}

	client := NewClient("/data", "/backup", WithCommander(commander))

	var notFound *domain.ToolNotFoundError

	_, err := client.Backup(context.Background(), false)
	assert.ErrorAs(t, err, &notFound)

	_, err = client.Verify(context.Background(), false)
	assert.ErrorAs(t, err, &notFound)

	_, err = client.Backups(context.Background())
	assert.ErrorAs(t, err, &notFound)

	_, err = client.Restore(context.Background(), domain.RestoreRequest{Destination: "/x"})
	assert.ErrorAs(t, err, &notFound)
}

func TestClient_SetPassphrase_EnvOnly(t *testing.T) {
	commander := versionedCommander("0.8", nil)

	client := NewClient("/data", "/backup", WithCommander(commander))
	client.SetPassphrase("hunter2")

	_, err := client.Backup(context.Background(), false)
	require.NoError(t, err)

	calls := operationCalls(commander)
	require.Len(t, calls, 1)
	assert.Equal(t, "hunter2", calls[0].Env["PASSPHRASE"])
	assert.NotContains(t, calls[0].Args, "hunter2")
	assert.NotContains(t, calls[0].Args, "--no-encryption")
}

func TestClient_Version(t *testing.T) {
	commander := versionedCommander("0.7.06", nil)

	client := NewClient("/data", "/backup", WithCommander(commander))

	v, err := client.Version(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "0.7.6", v)
}

func TestClient_IsInstalled(t *testing.T) {
	client := NewClient("/data", "/backup", WithCommander(versionedCommander("0.8", nil)))
	assert.True(t, client.IsInstalled(context.Background()))
}
