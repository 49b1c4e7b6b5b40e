package service

import (
	"context"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/platform/apperr"

	"golang.org/x/sync/errgroup"
)

const (
	opRunAudit    = "audit.Run"
	opLatestAudit = "audit.Latest"

	AuditTriggerManual    = "manual"
	AuditTriggerScheduled = "scheduled"
)

// RunAudit evaluates every consistency check over one snapshot and reports
// counts with bounded samples. It never writes to the store. The report is
// handed to the cache and recorder when configured.
func (s *Service) RunAudit(ctx context.Context, trigger string) (domain.AuditReport, error) {
	var ds domain.AuditDataset
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		var err error
		if ds.Territories, err = r.ListTerritories(ctx); err != nil {
			return err
		}
		if ds.Assignments, err = r.ListAssignments(ctx, repository.AssignmentFilter{}); err != nil {
			return err
		}
		if ds.Targets, err = r.ListAllTargets(ctx); err != nil {
			return err
		}
		ds.StatusCounts, err = r.CountVisitStatuses(ctx)
		return err
	})
	if err != nil {
		return domain.AuditReport{}, fail(opRunAudit, err, "audit data not found")
	}

	results := make([]domain.CheckResult, len(domain.Checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range domain.Checks {
		i, check := i, check
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			offenders := check.Run(ds, s.resolver)
			sample := offenders
			if len(sample) > s.sampleLimit {
				sample = sample[:s.sampleLimit]
			}
			results[i] = domain.CheckResult{
				Name:        check.Name,
				Description: check.Description,
				Count:       len(offenders),
				Sample:      append([]string{}, sample...),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AuditReport{}, err
	}

	report := domain.AuditReport{
		Trigger:     trigger,
		GeneratedAt: s.now().UTC(),
		Checks:      results,
	}
	s.log.AuditSummary(trigger, report.Violations())

	if s.recorder != nil {
		s.recorder.ObserveAudit(report)
	}
	if s.auditCache != nil {
		if err := s.auditCache.Save(ctx, report); err != nil {
			s.log.Error("failed to cache audit report", "error", err)
		}
	}
	return report, nil
}

// LatestAudit returns the most recently cached report.
func (s *Service) LatestAudit(ctx context.Context) (domain.AuditReport, error) {
	if s.auditCache == nil {
		return domain.AuditReport{}, apperr.NotFound("no audit report available").WithOp(opLatestAudit)
	}
	report, ok, err := s.auditCache.Latest(ctx)
	if err != nil {
		return domain.AuditReport{}, apperr.Wrap(apperr.KindInternal, "failed to read audit report", err).WithOp(opLatestAudit)
	}
	if !ok {
		return domain.AuditReport{}, apperr.NotFound("no audit report available").WithOp(opLatestAudit)
	}
	return report, nil
}
