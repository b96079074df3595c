package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrNamespace = "namespace"
	attrResult    = "result"
	attrKind      = "kind"
	attrPhase     = "phase"
)

// Metrics provides methods for recording observability metrics.
// All methods are safe to call on a nil or zero Metrics.
type Metrics struct {
	// Readiness metrics
	pollsTotal   metric.Int64Counter
	pollAttempts metric.Int64Histogram
	pollDuration metric.Float64Histogram

	// Log stream metrics
	logLinesTotal   metric.Int64Counter
	logStreamsTotal metric.Int64Counter

	// Pod operation metrics
	k8sPodOperationsTotal   metric.Int64Counter
	k8sPodOperationDuration metric.Float64Histogram

	// Attach sessions
	activeSessions metric.Int64UpDownCounter

	// Configuration
	// detailedLabels controls whether the namespace label is included in pod
	// operation metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// Readiness Metrics
	m.pollsTotal, err = meter.Int64Counter(
		"readiness_polls_total",
		metric.WithDescription("Total number of readiness polls by resource kind and result"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create readiness_polls_total counter: %w", err)
	}

	m.pollAttempts, err = meter.Int64Histogram(
		"readiness_poll_attempts",
		metric.WithDescription("Number of predicate evaluations per readiness poll"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 30, 60, 150),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create readiness_poll_attempts histogram: %w", err)
	}

	m.pollDuration, err = meter.Float64Histogram(
		"readiness_poll_duration_seconds",
		metric.WithDescription("Readiness poll duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 1, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create readiness_poll_duration_seconds histogram: %w", err)
	}

	// Log Stream Metrics
	m.logLinesTotal, err = meter.Int64Counter(
		"log_lines_total",
		metric.WithDescription("Total number of log lines delivered by phase"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log_lines_total counter: %w", err)
	}

	m.logStreamsTotal, err = meter.Int64Counter(
		"log_streams_total",
		metric.WithDescription("Total number of finished log streams by phase and status"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log_streams_total counter: %w", err)
	}

	// Pod Operation Metrics
	m.k8sPodOperationsTotal, err = meter.Int64Counter(
		"kubernetes_pod_operations_total",
		metric.WithDescription("Total number of Kubernetes pod operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes_pod_operations_total counter: %w", err)
	}

	m.k8sPodOperationDuration, err = meter.Float64Histogram(
		"kubernetes_pod_operation_duration_seconds",
		metric.WithDescription("Kubernetes pod operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes_pod_operation_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_attach_sessions",
		metric.WithDescription("Number of active interactive attach sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_attach_sessions gauge: %w", err)
	}

	return m, nil
}

// RecordPoll records a finished readiness poll. kind is "pod" or "container";
// result is one of PollResultReady, PollResultNotReady or PollResultError.
func (m *Metrics) RecordPoll(ctx context.Context, kind, result string, attempts int, duration time.Duration) {
	if m == nil || m.pollsTotal == nil || m.pollAttempts == nil || m.pollDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrResult, result),
	)

	m.pollsTotal.Add(ctx, 1, attrs)
	m.pollAttempts.Record(ctx, int64(attempts), attrs)
	m.pollDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLogLines adds n delivered lines for a phase.
func (m *Metrics) RecordLogLines(ctx context.Context, phase string, n int64) {
	if m == nil || m.logLinesTotal == nil || n <= 0 {
		return // Instrumentation not initialized
	}

	m.logLinesTotal.Add(ctx, n, metric.WithAttributes(attribute.String(attrPhase, phase)))
}

// RecordLogStream records the end of a log stream with its status.
func (m *Metrics) RecordLogStream(ctx context.Context, phase, status string) {
	if m == nil || m.logStreamsTotal == nil {
		return // Instrumentation not initialized
	}

	m.logStreamsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrPhase, phase),
		attribute.String(attrStatus, status),
	))
}

// RecordPodOperation records a Kubernetes pod operation with operation type, namespace,
// status, and duration.
//
// CARDINALITY NOTE: When detailedLabels is false (default), only operation and status
// labels are recorded. When detailedLabels is true, namespace is also included.
func (m *Metrics) RecordPodOperation(ctx context.Context, operation, namespace, status string, duration time.Duration) {
	if m == nil || m.k8sPodOperationsTotal == nil || m.k8sPodOperationDuration == nil {
		return // Instrumentation not initialized
	}

	// Always include operation and status (low cardinality)
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrNamespace, namespace))
	}

	m.k8sPodOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.k8sPodOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active attach sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active attach sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}
