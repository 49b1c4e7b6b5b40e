package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"territory_backend/internal/territory/domain"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAudit(t *testing.T) {
	reg := promclient.NewRegistry()
	m, err := NewAuditMetrics(reg)
	require.NoError(t, err)

	report := domain.AuditReport{
		Trigger:     "scheduled",
		GeneratedAt: time.Unix(1700000000, 0),
		Checks: []domain.CheckResult{
			{Name: "owner_without_assignment", Count: 3},
			{Name: "targets_missing_address", Count: 0},
		},
	}
	m.ObserveAudit(report)
	m.ObserveAudit(report)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.violations.WithLabelValues("owner_without_assignment")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.violations.WithLabelValues("targets_missing_address")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("scheduled")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))
}

func TestNewAuditMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := promclient.NewRegistry()
	first, err := NewAuditMetrics(reg)
	require.NoError(t, err)
	second, err := NewAuditMetrics(reg)
	require.NoError(t, err)

	first.ObserveAudit(domain.AuditReport{Trigger: "manual", Checks: []domain.CheckResult{{Name: "x", Count: 1}}})
	assert.Equal(t, 1.0, testutil.ToFloat64(second.violations.WithLabelValues("x")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := promclient.NewRegistry()
	m, err := NewAuditMetrics(reg)
	require.NoError(t, err)
	m.ObserveAudit(domain.AuditReport{Trigger: "manual", Checks: []domain.CheckResult{{Name: "x", Count: 4}}})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `territory_audit_violations{check="x"} 4`)
}
