package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TestAllMetricsExposedViaPrometheus verifies that every metric defined in
// metrics.go is recorded and exposed through the Prometheus endpoint, along
// with the label values the dashboards rely on.
//
// The OTel prometheus exporter registers with the global Prometheus registry,
// so promhttp.Handler() exposes exactly what a running binary would serve.
func TestAllMetricsExposedViaPrometheus(t *testing.T) {
	config := Config{
		ServiceName:     "test-metrics-integration",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	}

	ctx := context.Background()
	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("Failed to create instrumentation provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}

	recordAllMetrics(ctx, metrics)

	metricsOutput := scrape(t)

	// NOTE: These MUST match the metric names in metrics.go
	expectedMetrics := []struct {
		name        string
		description string
		isHistogram bool
	}{
		// Readiness metrics
		{"readiness_polls_total", "Readiness polls", false},
		{"readiness_poll_attempts", "Attempts per poll", true},
		{"readiness_poll_duration_seconds", "Poll duration", true},

		// Log stream metrics
		{"log_lines_total", "Delivered log lines", false},
		{"log_streams_total", "Finished log streams", false},

		// Pod operation metrics
		{"kubernetes_pod_operations_total", "Total pod operations", false},
		{"kubernetes_pod_operation_duration_seconds", "Pod operation duration", true},

		// Attach sessions
		{"active_attach_sessions", "Active attach sessions", false},
	}

	var missing []string
	for _, m := range expectedMetrics {
		found := false

		// Prometheus exposes histograms with _bucket, _sum and _count suffixes
		if m.isHistogram {
			for _, suffix := range []string{"_bucket", "_sum", "_count"} {
				if containsMetric(metricsOutput, m.name+suffix) {
					found = true
					break
				}
			}
		} else {
			found = containsMetric(metricsOutput, m.name)
		}

		if found {
			t.Logf("PASS: Found metric %s (%s)", m.name, m.description)
		} else {
			missing = append(missing, m.name)
			t.Errorf("FAIL: Missing metric %s (%s)", m.name, m.description)
		}
	}

	if len(missing) > 0 {
		t.Logf("Missing metrics: %v", missing)
		if len(metricsOutput) > 2000 {
			t.Log(metricsOutput[:2000])
		} else {
			t.Log(metricsOutput)
		}
	}

	labelTests := []struct {
		description string
		expected    string
	}{
		{"Poll kind label", `kind="container"`},
		{"Poll result label", `result="not_ready"`},
		{"Log phase label", `phase="init"`},
		{"Operation label", `operation="exec"`},
		{"Status label", `status="success"`},
	}

	for _, tc := range labelTests {
		if !strings.Contains(metricsOutput, tc.expected) {
			t.Errorf("FAIL: Missing label %s (%s)", tc.expected, tc.description)
		}
	}

	// Namespace is a detailed label and stays off by default.
	if strings.Contains(metricsOutput, `namespace="ims"`) {
		t.Error("namespace label should not be recorded without detailed labels")
	}
}

// recordAllMetrics calls every Record* function so each metric is exported at least once.
func recordAllMetrics(ctx context.Context, m *Metrics) {
	m.RecordPoll(ctx, "pod", PollResultReady, 2, 2*time.Second)
	m.RecordPoll(ctx, "container", PollResultNotReady, 10, 18*time.Second)
	m.RecordPoll(ctx, "container", PollResultError, 1, 10*time.Millisecond)

	m.RecordLogLines(ctx, "init", 12)
	m.RecordLogLines(ctx, "main", 340)
	m.RecordLogStream(ctx, "init", StatusSuccess)
	m.RecordLogStream(ctx, "main", StatusError)

	m.RecordPodOperation(ctx, OperationList, "services", StatusSuccess, 20*time.Millisecond)
	m.RecordPodOperation(ctx, OperationLogs, "services", StatusSuccess, 200*time.Millisecond)
	m.RecordPodOperation(ctx, OperationExec, "ims", StatusSuccess, 300*time.Millisecond)

	m.IncrementActiveSessions(ctx)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)
}

// scrape fetches the global Prometheus registry through promhttp.
func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to fetch metrics: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	return string(body)
}

// containsMetric checks if the metrics output contains a metric line
// that starts with the given metric name (accounting for labels).
func containsMetric(metricsOutput, metricName string) bool {
	for _, line := range strings.Split(metricsOutput, "\n") {
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "# TYPE "+metricName+" ") ||
			strings.HasPrefix(line, "# HELP "+metricName+" ") {
			return true
		}

		// Format: metric_name{labels} value or metric_name value
		if strings.HasPrefix(line, metricName+"{") || strings.HasPrefix(line, metricName+" ") {
			return true
		}
	}
	return false
}
