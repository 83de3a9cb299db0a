package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "append"),
		attribute.String("record_id", "123"),
		attribute.String("backend", "sql"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "record_id" {
			t.Fatalf("record_id must be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordReadingAdded(context.Background(), "manual")
	m.RecordStoreOperation(context.Background(), "append", "sql", time.Millisecond, errors.New("boom"))

	var r *ReminderMetrics
	r.RecordRun(ReminderOutcomeSent)
	r.SetNextDue(time.Now())

	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordImportSkipped(context.Background(), 2)
	m.RecordReadingRejected(context.Background(), "reading_not_greater")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg, Config{ServiceName: "meterbook", Environment: "test"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/health", "200"))
	if got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
}

func TestReminderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newReminderMetrics(reg, Config{})

	m.RecordRun(ReminderOutcomeSent)
	m.RecordRun(ReminderOutcomeIdle)
	m.RecordRun(ReminderOutcomeIdle)

	if got := testutil.ToFloat64(m.runs.WithLabelValues(ReminderOutcomeIdle)); got != 2 {
		t.Fatalf("expected 2 idle runs, got %v", got)
	}

	due := time.Date(2025, time.May, 14, 12, 0, 0, 0, time.UTC)
	m.SetNextDue(due)
	if got := testutil.ToFloat64(m.nextDue); got != float64(due.Unix()) {
		t.Fatalf("unexpected next due %v", got)
	}
}
