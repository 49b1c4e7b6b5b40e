package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAuditCache struct {
	report *domain.AuditReport
}

func (c *memoryAuditCache) Save(_ context.Context, report domain.AuditReport) error {
	c.report = &report
	return nil
}

func (c *memoryAuditCache) Latest(context.Context) (domain.AuditReport, bool, error) {
	if c.report == nil {
		return domain.AuditReport{}, false, nil
	}
	return *c.report, true, nil
}

type countingRecorder struct {
	reports []domain.AuditReport
}

func (r *countingRecorder) ObserveAudit(report domain.AuditReport) {
	r.reports = append(r.reports, report)
}

func findCheck(t *testing.T, report domain.AuditReport, name string) domain.CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s missing", name)
	return domain.CheckResult{}
}

func TestAuditReportsSeedingMismatchForOlderAssignments(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)
	west := f.territory("West")
	agent1 := f.agent("agent1")
	agent2 := f.agent("agent2")
	f.target(incompleteRequest("Dr. Rao", west))

	first := f.assign(west, agent1)
	f.assign(west, agent2)

	report, err := f.svc.RunAudit(f.ctx, AuditTriggerManual)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	// a target added later is seeded only for the owner's latest assignment
	f.target(incompleteRequest("Dr. Mehta", west))

	report, err = f.svc.RunAudit(f.ctx, AuditTriggerManual)
	require.NoError(t, err)
	mismatch := findCheck(t, report, "assignment_seeding_mismatch")
	assert.Equal(t, 1, mismatch.Count)
	assert.Equal(t, []string{first.ID.String()}, mismatch.Sample)
}

func TestAuditSampleIsBounded(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)
	f.svc = New(f.store, f.bus, f.svc.log, Options{AuditSampleLimit: 2})
	f.svc.SetClock(func() time.Time { return f.clock })

	require.NoError(t, f.store.InTx(f.ctx, func(tx repository.Tx) error {
		for i := 0; i < 5; i++ {
			err := tx.InsertTarget(f.ctx, domain.Target{
				ID:        domain.NewID(),
				Name:      fmt.Sprintf("Dr. %d", i),
				NameKey:   domain.NameKey(fmt.Sprintf("Dr. %d", i)),
				Status:    domain.StatusPending,
				CreatedAt: f.clock,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	report, err := f.svc.RunAudit(f.ctx, AuditTriggerScheduled)
	require.NoError(t, err)
	missing := findCheck(t, report, "targets_missing_address")
	assert.Equal(t, 5, missing.Count)
	assert.Len(t, missing.Sample, 2)
	assert.Equal(t, AuditTriggerScheduled, report.Trigger)
	assert.Len(t, report.Checks, len(domain.Checks))
	for i, c := range report.Checks {
		assert.Equal(t, domain.Checks[i].Name, c.Name)
	}
}

func TestAuditCacheAndRecorder(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)

	_, err := f.svc.LatestAudit(f.ctx)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	cache := &memoryAuditCache{}
	recorder := &countingRecorder{}
	f.svc.SetAuditCache(cache)
	f.svc.SetAuditRecorder(recorder)

	_, err = f.svc.LatestAudit(f.ctx)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	report, err := f.svc.RunAudit(f.ctx, AuditTriggerManual)
	require.NoError(t, err)
	require.Len(t, recorder.reports, 1)

	latest, err := f.svc.LatestAudit(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, report.GeneratedAt, latest.GeneratedAt)
	assert.Equal(t, report.Violations(), latest.Violations())
}
