package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/roomassign/pkg/report"
	"github.com/paiban/roomassign/pkg/validator"
)

func TestRegistry_RecordOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordOperation("auto_assign", true, 20*time.Millisecond)
	r.RecordOperation("auto_assign", false, 2*time.Second)

	counter := r.GetCounter(OperationsTotal)
	require.NotNil(t, counter)
	assert.Equal(t, 1.0, counter.Value("auto_assign", "success"))
	assert.Equal(t, 1.0, counter.Value("auto_assign", "failure"))
	assert.Equal(t, 2, r.GetHistogram(OperationDuration).Count("auto_assign"))
}

func TestRegistry_ObserveReport(t *testing.T) {
	r := NewRegistry()
	d := &report.DetailedReport{
		Report: &report.AssignmentReport{
			QualityScore: 72,
			Hotels: []report.HotelStats{
				{HotelID: "h1", OccupancyRate: 95},
				{HotelID: "h2", OccupancyRate: 40},
			},
			Balance: report.BalanceMetrics{Gini: 0.2},
		},
		ConflictSummary: validator.Summary{Critical: 1, Medium: 2},
	}

	r.ObserveReport(d)

	assert.Equal(t, 72.0, r.GetGauge(AssignmentQuality).Value())
	assert.Equal(t, 95.0, r.GetGauge(HotelOccupancyRate).Value("h1"))
	assert.Equal(t, 1.0, r.GetGauge(AssignmentConflicts).Value("critical"))
	assert.Equal(t, 2.0, r.GetGauge(AssignmentConflicts).Value("medium"))

	d.Report.Hotels = d.Report.Hotels[:1]
	r.ObserveReport(d)
	assert.Equal(t, 0.0, r.GetGauge(HotelOccupancyRate).Value("h2"), "stale hotels are dropped")
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("POST", "/api/v1/assignments/suggest", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, body, "# TYPE roomassign_http_requests_total counter")
	assert.Contains(t, body, `roomassign_http_requests_total{method="POST",path="/api/v1/assignments/suggest",status="200"} 1`)
	assert.Contains(t, body, `roomassign_http_request_duration_seconds_bucket{method="POST",path="/api/v1/assignments/suggest",le="0.005"} 1`)
	assert.Contains(t, body, `roomassign_http_request_duration_seconds_bucket{method="POST",path="/api/v1/assignments/suggest",le="0.001"} 0`)
	assert.True(t, strings.Index(body, HTTPRequestsTotal) < strings.Index(body, OperationsTotal), "counters are sorted by name")
}
