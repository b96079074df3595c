// Package instrumentation provides OpenTelemetry metrics and tracing for
// cfs-observer.
//
// Instrumentation is off by default. When it is off, NewProvider returns a
// Provider whose Metrics record to a noop meter and no global tracer is
// installed, so callers never need to check whether it is enabled.
//
// # Metrics
//
// Readiness Metrics:
//   - readiness_polls_total: Counter of readiness polls by kind (pod, container) and result
//   - readiness_poll_attempts: Histogram of predicate evaluations per poll
//   - readiness_poll_duration_seconds: Histogram of poll durations
//
// Log Stream Metrics:
//   - log_lines_total: Counter of delivered log lines by phase
//   - log_streams_total: Counter of finished log streams by phase and status
//
// Pod Operation Metrics:
//   - kubernetes_pod_operations_total: Counter of list, logs and exec calls
//   - kubernetes_pod_operation_duration_seconds: Histogram of pod operation durations
//   - active_attach_sessions: Gauge of running interactive attach sessions
//
// The namespace label on pod operation metrics is only recorded when detailed
// labels are enabled.
//
// # Tracing
//
// Spans are created for each session phase ("session.init", "session.main")
// and for each attach hop ("attach.discover", "attach.derive", ...). Both carry
// the job identity under the cfs.job attribute.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - METRICS_ADDR: Listen address for the Prometheus endpoint and /healthz (default: not served)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: cfs-observer)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordPoll(ctx, "container", instrumentation.PollResultReady, attempts, time.Since(start))
package instrumentation
