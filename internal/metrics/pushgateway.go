// Package metrics provides implementations for pushing metrics to remote endpoints.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
	"github.com/sharkusmanch/duplicity-runner/internal/http"
	"github.com/sharkusmanch/duplicity-runner/pkg/version"
)

const (
	metricsJobName = "duplicity"
	contentType    = "text/plain; charset=utf-8"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push sends metrics to the Pushgateway.
func (p *PushgatewayClient) Push(ctx context.Context, metrics *domain.Metrics) error {
	body := p.buildMetrics(metrics)

	pushURL := fmt.Sprintf("%s/metrics/job/%s/instance/%s", p.url, metricsJobName, metrics.Hostname)

	p.logger.Debug("pushing metrics to pushgateway",
		"url", pushURL,
		"metrics_count", len(metrics.Results),
	)

	resp, err := p.httpClient.Post(ctx, pushURL, contentType, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushgateway returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	p.logger.Debug("metrics pushed successfully")
	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	// Pushgateway typically has a /-/ready endpoint
	readyURL := fmt.Sprintf("%s/-/ready", p.url)

	if err := p.httpClient.Ping(ctx, readyURL); err != nil {
		// Try the root URL as fallback
		if err2 := p.httpClient.Ping(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}

	return nil
}

// buildMetrics constructs the Prometheus text format metrics.
func (p *PushgatewayClient) buildMetrics(m *domain.Metrics) string {
	var b strings.Builder

	// Info metric
	versionInfo := version.Get()
	b.WriteString("# HELP duplicity_runner_info Build information\n")
	b.WriteString("# TYPE duplicity_runner_info gauge\n")
	b.WriteString(fmt.Sprintf("duplicity_runner_info{version=%q,go_version=%q} 1\n",
		versionInfo.Version, runtime.Version()))
	b.WriteString("\n")

	// Chain length at the target
	b.WriteString("# HELP duplicity_chain_length Backup sets found at the target\n")
	b.WriteString("# TYPE duplicity_chain_length gauge\n")
	b.WriteString(fmt.Sprintf("duplicity_chain_length %d\n", m.ChainLength))
	b.WriteString("\n")

	// Write HELP/TYPE declarations once for result metrics
	if len(m.Results) > 0 {
		b.WriteString("# HELP duplicity_last_run_timestamp_seconds Unix timestamp of last run\n")
		b.WriteString("# TYPE duplicity_last_run_timestamp_seconds gauge\n")
		b.WriteString("# HELP duplicity_last_run_success Whether the last run succeeded\n")
		b.WriteString("# TYPE duplicity_last_run_success gauge\n")
		b.WriteString("# HELP duplicity_last_run_duration_seconds Duration of last run\n")
		b.WriteString("# TYPE duplicity_last_run_duration_seconds gauge\n")
		b.WriteString("# HELP duplicity_last_run_exit_code Duplicity exit code of last run\n")
		b.WriteString("# TYPE duplicity_last_run_exit_code gauge\n")
		b.WriteString("\n")

		// Write metric values for each result
		for _, result := range m.Results {
			p.writeResultMetrics(&b, result)
		}
	}

	return b.String()
}

// writeResultMetrics writes metric values for a single operation result.
func (p *PushgatewayClient) writeResultMetrics(b *strings.Builder, r *domain.OperationResult) {
	op := r.Operation.String()

	success := 0
	if r.Success {
		success = 1
	}

	b.WriteString(fmt.Sprintf("duplicity_last_run_timestamp_seconds{operation=%q} %d\n", op, r.EndTime.Unix()))
	b.WriteString(fmt.Sprintf("duplicity_last_run_success{operation=%q} %d\n", op, success))
	b.WriteString(fmt.Sprintf("duplicity_last_run_duration_seconds{operation=%q} %.3f\n", op, r.Duration.Seconds()))
	b.WriteString(fmt.Sprintf("duplicity_last_run_exit_code{operation=%q} %d\n", op, r.ExitCode))
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
