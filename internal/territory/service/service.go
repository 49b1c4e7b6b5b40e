// Package service implements the territory engine's operations: the
// assignment lifecycle, target identity and visibility, visit completeness and
// the consistency audit. Every state change runs inside one store transaction.
package service

import (
	"context"
	"errors"
	"time"

	"territory_backend/internal/adapters/storage"
	"territory_backend/internal/events"
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/platform/apperr"
	"territory_backend/platform/logger"
	"territory_backend/platform/phone"

	"github.com/google/uuid"
)

const defaultAuditSampleLimit = 10

// Caller is the authenticated identity an operation runs for.
type Caller struct {
	UserID uuid.UUID
	Admin  bool
}

// AuditCache keeps the most recent audit report.
type AuditCache interface {
	Save(ctx context.Context, report domain.AuditReport) error
	Latest(ctx context.Context) (domain.AuditReport, bool, error)
}

// AuditRecorder receives every finished audit report, e.g. to export gauges.
type AuditRecorder interface {
	ObserveAudit(report domain.AuditReport)
}

// Options configures the engine rules.
type Options struct {
	Scope            domain.Scope
	PhoneRegion      string
	AuditSampleLimit int
}

// Service provides the territory engine operations.
type Service struct {
	store       repository.Store
	resolver    domain.Resolver
	phone       phone.Normalizer
	eventBus    events.Bus
	log         *logger.Logger
	sampleLimit int
	now         func() time.Time

	storage     storage.StorageService
	proofBucket string
	auditCache  AuditCache
	recorder    AuditRecorder
}

// New creates the territory service. eventBus may be nil.
func New(store repository.Store, eventBus events.Bus, log *logger.Logger, opts Options) *Service {
	limit := opts.AuditSampleLimit
	if limit <= 0 {
		limit = defaultAuditSampleLimit
	}
	return &Service{
		store:       store,
		resolver:    domain.NewResolver(opts.Scope),
		phone:       phone.NewNormalizer(opts.PhoneRegion),
		eventBus:    eventBus,
		log:         log,
		sampleLimit: limit,
		now:         time.Now,
	}
}

// SetStorage enables proof-of-visit attachments.
func (s *Service) SetStorage(svc storage.StorageService, bucket string) {
	s.storage = svc
	s.proofBucket = bucket
}

func (s *Service) SetAuditCache(cache AuditCache) {
	s.auditCache = cache
}

func (s *Service) SetAuditRecorder(recorder AuditRecorder) {
	s.recorder = recorder
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Scope returns the identity scope the service resolves targets under.
func (s *Service) Scope() domain.Scope {
	return s.resolver.Scope()
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, event)
}

// canonicalTargets returns the canonical non-internal records resolving to
// territoryIDs, newest first.
func (s *Service) canonicalTargets(ctx context.Context, r repository.Reader, territoryIDs []uuid.UUID) ([]domain.Target, error) {
	if len(territoryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.ListTargetsByTerritories(ctx, territoryIDs)
	if err != nil {
		return nil, err
	}
	rows = domain.ExcludeInternal(rows)
	if s.resolver.Scope() == domain.ScopeGlobal && len(rows) > 0 {
		rows, err = r.ListTargetsByNameKeys(ctx, domain.NameKeys(rows))
		if err != nil {
			return nil, err
		}
		rows = domain.ExcludeInternal(rows)
	}
	return domain.InTerritories(s.resolver.Canonical(rows), territoryIDs), nil
}

// isCanonical reports whether t is the record its territory currently
// resolves its name to.
func (s *Service) isCanonical(ctx context.Context, r repository.Reader, t domain.Target) (bool, error) {
	tid := t.TerritoryID()
	if t.IsInternal || tid == nil {
		return false, nil
	}
	rows, err := s.canonicalTargets(ctx, r, []uuid.UUID{*tid})
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.ID == t.ID {
			return true, nil
		}
	}
	return false, nil
}

// fail turns a repository or store error into an apperr for op. Errors that
// are already typed keep their kind.
func fail(op string, err error, notFound string) error {
	if appErr, ok := apperr.As(err); ok {
		if appErr.Op == "" {
			return appErr.WithOp(op)
		}
		return appErr
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(notFound).WithOp(op)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, "storage failure", err).WithOp(op)
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return err
}
