package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

func TestPushgatewayClient_Push_Success(t *testing.T) {
	var receivedBody string
	var receivedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		receivedBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL)

	metrics := domain.NewMetrics("test-host")
	metrics.ChainLength = 4

	result := domain.NewOperationResult(domain.OperationBackup)
	result.Kind = domain.KindIncremental
	result.Complete(true, nil)
	metrics.AddResult(result)

	err := client.Push(context.Background(), metrics)

	require.NoError(t, err)
	assert.Equal(t, "/metrics/job/duplicity/instance/test-host", receivedPath)
	assert.Contains(t, receivedBody, "duplicity_runner_info")
	assert.Contains(t, receivedBody, "duplicity_chain_length 4")
	assert.Contains(t, receivedBody, `operation="backup"`)
}

func TestPushgatewayClient_Push_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL)
	metrics := domain.NewMetrics("test-host")

	err := client.Push(context.Background(), metrics)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestPushgatewayClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL)
	err := client.Validate(context.Background())

	assert.NoError(t, err)
}

func TestPushgatewayClient_Validate_Failure(t *testing.T) {
	client := NewPushgatewayClient("http://localhost:1")
	err := client.Validate(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestPushgatewayClient_BuildMetrics(t *testing.T) {
	client := NewPushgatewayClient("http://localhost:9091")

	metrics := domain.NewMetrics("test-host")
	metrics.ChainLength = 7

	backupResult := &domain.OperationResult{
		Operation: domain.OperationBackup,
		Kind:      domain.KindFull,
		Success:   true,
		ExitCode:  0,
		StartTime: time.Now().Add(-5 * time.Second),
		EndTime:   time.Now(),
		Duration:  5 * time.Second,
	}
	metrics.AddResult(backupResult)

	verifyResult := &domain.OperationResult{
		Operation: domain.OperationVerify,
		Success:   false,
		ExitCode:  1,
		Outcome:   domain.IsChanged.String(),
		StartTime: time.Now().Add(-10 * time.Second),
		EndTime:   time.Now().Add(-5 * time.Second),
		Duration:  5 * time.Second,
	}
	metrics.AddResult(verifyResult)

	body := client.buildMetrics(metrics)

	// Check for expected metrics
	assert.Contains(t, body, "duplicity_runner_info")
	assert.Contains(t, body, "duplicity_chain_length 7")
	assert.Contains(t, body, `operation="backup"`)
	assert.Contains(t, body, `operation="verify"`)
	assert.Contains(t, body, "duplicity_last_run_success")
	assert.Contains(t, body, "duplicity_last_run_duration_seconds")
	assert.Contains(t, body, `duplicity_last_run_exit_code{operation="verify"} 1`)

	// Verify valid Prometheus format (no syntax errors)
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Each non-comment, non-empty line should have a metric name and value
		parts := strings.Fields(line)
		assert.GreaterOrEqual(t, len(parts), 2, "line should have metric and value: %s", line)
	}
}

func TestPushgatewayClient_BuildMetrics_NoResults(t *testing.T) {
	client := NewPushgatewayClient("http://localhost:9091")

	metrics := domain.NewMetrics("test-host")

	body := client.buildMetrics(metrics)

	assert.Contains(t, body, "duplicity_chain_length 0")
	assert.NotContains(t, body, "duplicity_last_run_success")
}
