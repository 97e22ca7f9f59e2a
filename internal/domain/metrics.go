package domain

import (
	"context"
	"time"
)

// Metrics contains all metrics to be pushed after a run.
type Metrics struct {
	// Timestamp when metrics were collected.
	Timestamp time.Time

	// Hostname of the machine.
	Hostname string

	// ChainLength is the number of backup sets at the target.
	ChainLength int

	// Results from the operations of this run.
	Results []*OperationResult
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(hostname string) *Metrics {
	return &Metrics{
		Timestamp: time.Now(),
		Hostname:  hostname,
		Results:   make([]*OperationResult, 0),
	}
}

// AddResult adds an operation result to the metrics.
func (m *Metrics) AddResult(result *OperationResult) {
	if result != nil {
		m.Results = append(m.Results, result)
	}
}

// MetricsPusher defines the interface for pushing metrics to a remote endpoint.
type MetricsPusher interface {
	// Push sends metrics to the remote endpoint.
	Push(ctx context.Context, metrics *Metrics) error

	// Validate checks if the pusher is properly configured.
	Validate(ctx context.Context) error
}
