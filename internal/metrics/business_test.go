package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine checks that the Prometheus output contains a metric
// matching the given name, partial label pattern, and value. Uses regex to
// handle extra OTel scope labels injected by the Prometheus exporter.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrapeMetrics(t *testing.T, provider *Provider) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/metrics", nil)
	provider.Handler().ServeHTTP(recorder, request)
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("grants")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "grants")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider, err := NewProvider("grants")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "grants")
	require.NoError(t, err)

	bm.RecordOperation(context.Background(), "grants", "grant_create", "success")
	bm.RecordOperation(context.Background(), "grants", "grant_revoke", "error")
	bm.RecordOperation(context.Background(), "access", "access_check", "success")

	output := scrapeMetrics(t, provider)
	assertMetricLine(t, output, "grants_operations_total", `operation="grant_create"`, "1")
	assertMetricLine(t, output, "grants_operations_total", `status="error"`, "1")
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider, err := NewProvider("grants")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "grants")
	require.NoError(t, err)

	bm.RecordDuration(context.Background(), "grants", "grant_create", 123*time.Millisecond, "success")

	output := scrapeMetrics(t, provider)
	assertMetricLine(t, output, "grants_operation_duration_seconds_count", `operation="grant_create"`, "1")
}

func TestBusinessMetrics_RecordSweep(t *testing.T) {
	provider, err := NewProvider("grants")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "grants")
	require.NoError(t, err)

	bm.RecordSweep(context.Background(), "expire", 5)
	bm.RecordSweep(context.Background(), "warning", 2)
	bm.RecordSweep(context.Background(), "expire", 3)

	output := scrapeMetrics(t, provider)
	assertMetricLine(t, output, "grants_swept_total", `pass="expire"`, "8")
	assertMetricLine(t, output, "grants_swept_total", `pass="warning"`, "2")
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()

	// None of these should panic
	bm.RecordOperation(context.Background(), "grants", "grant_create", "success")
	bm.RecordDuration(context.Background(), "grants", "grant_create", time.Second, "success")
	bm.RecordSweep(context.Background(), "expire", 1)
}
