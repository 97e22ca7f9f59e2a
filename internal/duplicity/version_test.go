package duplicity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{"0.7.06", Version{0, 7, 6}, false},
		{"0.7", Version{0, 7, 0}, false},
		{"0.6.23", Version{0, 6, 23}, false},
		{"1.0.1", Version{1, 0, 1}, false},
		{"2", Version{2, 0, 0}, false},
		{" 0.8.21 ", Version{0, 8, 21}, false},
		{"", Version{}, true},
		{"abc", Version{}, true},
		{"0.x.1", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{Version{0, 6, 23}, Version{0, 7, 0}, -1},
		{Version{0, 7, 0}, Version{0, 6, 23}, 1},
		{Version{0, 7, 0}, Version{0, 7, 0}, 0},
		// Missing components are zero, so 0.7 == 0.7.0.
		{Version{0, 7, 0}, Version{Major: 0, Minor: 7}, 0},
		{Version{1, 0, 0}, Version{0, 9, 99}, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Compare(tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestVersion_AtLeast(t *testing.T) {
	assert.True(t, Version{0, 7, 0}.AtLeast(Version{0, 7, 0}))
	assert.True(t, Version{0, 8, 0}.AtLeast(Version{0, 7, 0}))
	assert.False(t, Version{0, 6, 23}.AtLeast(Version{0, 7, 0}))
}

func TestGate_Current_ProbesOnce(t *testing.T) {
	commander := &MockCommander{OutputLines: []string{"duplicity 0.7.06"}}
	gate := NewGate(commander)

	v1, err := gate.Current(context.Background())
	require.NoError(t, err)
	v2, err := gate.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Version{0, 7, 6}, v1)
	assert.Equal(t, v1, v2)
	// The version is cached after the first probe.
	assert.Len(t, commander.Calls, 1)
	assert.Equal(t, []string{"--version"}, commander.Calls[0].Args)
}

func TestGate_Current_ConcurrentFirstProbe(t *testing.T) {
	commander := &MockCommander{OutputLines: []string{"duplicity 0.8.21"}}
	gate := NewGate(commander)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := gate.Current(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, Version{0, 8, 21}, v)
		}()
	}
	wg.Wait()

	assert.Len(t, commander.Calls, 1)
}

func TestGate_Current_ToolMissing(t *testing.T) {
	commander := &MockCommander{
		RunFunc: func(ctx context.Context, args []string, env map[string]string) (int, error) {
			return -1, errors.New("binary not found")
		},
	}
	gate := NewGate(commander)

	_, err := gate.Current(context.Background())

	require.Error(t, err)
	var notFound *domain.ToolNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGate_Current_UnparseableProbe(t *testing.T) {
	commander := &MockCommander{OutputLines: []string{"not a version at all"}}
	gate := NewGate(commander)

	_, err := gate.Current(context.Background())

	require.Error(t, err)
	var notFound *domain.ToolNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGate_IsInstalled(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		gate := NewGate(&MockCommander{OutputLines: []string{"duplicity 0.7.06"}})
		assert.True(t, gate.IsInstalled(context.Background()))
	})

	t.Run("probe exits non-zero", func(t *testing.T) {
		commander := &MockCommander{
			RunFunc: func(ctx context.Context, args []string, env map[string]string) (int, error) {
				return 127, nil
			},
		}
		gate := NewGate(commander)
		assert.False(t, gate.IsInstalled(context.Background()))
	})

	t.Run("probe fails to run", func(t *testing.T) {
		commander := &MockCommander{
			RunFunc: func(ctx context.Context, args []string, env map[string]string) (int, error) {
				return -1, errors.New("no such file")
			},
		}
		gate := NewGate(commander)
		assert.False(t, gate.IsInstalled(context.Background()))
	})
}

func TestGate_Supports(t *testing.T) {
	gate := NewGate(&MockCommander{OutputLines: []string{"duplicity 0.6.23"}})

	assert.True(t, gate.Supports(context.Background(), Version{0, 6, 23}))
	assert.False(t, gate.Supports(context.Background(), Version{0, 7, 0}))
}

func TestGate_Supports_ToolMissing(t *testing.T) {
	commander := &MockCommander{
		RunFunc: func(ctx context.Context, args []string, env map[string]string) (int, error) {
			return -1, errors.New("binary not found")
		},
	}
	gate := NewGate(commander)

	assert.False(t, gate.Supports(context.Background(), Version{0, 1, 0}))
}
