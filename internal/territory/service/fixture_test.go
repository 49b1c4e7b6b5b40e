package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"territory_backend/internal/events"
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repository.MemoryStore
	svc   *Service
	bus   *recordingBus
	clock time.Time
	admin Caller
}

func newFixture(t *testing.T, scope domain.Scope) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: repository.NewMemoryStore(),
		bus:   &recordingBus{},
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		admin: Caller{UserID: uuid.New(), Admin: true},
	}
	f.svc = New(f.store, f.bus, logger.NewWithWriter("production", io.Discard), Options{
		Scope:       scope,
		PhoneRegion: "IN",
	})
	f.svc.SetClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) agent(name string) uuid.UUID {
	f.t.Helper()
	a := domain.Agent{
		ID:        domain.NewID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      domain.RoleAgent,
		IsActive:  true,
		CreatedAt: f.clock,
	}
	require.NoError(f.t, f.store.InsertAgent(f.ctx, a))
	return a.ID
}

func (f *fixture) territory(name string) uuid.UUID {
	f.t.Helper()
	tr := domain.Territory{ID: domain.NewID(), Name: name, City: "Pune", CreatedAt: f.clock}
	require.NoError(f.t, f.store.InsertTerritory(f.ctx, tr))
	return tr.ID
}

func incompleteRequest(name string, territoryID uuid.UUID) transport.UpsertTargetRequest {
	tid := territoryID
	return transport.UpsertTargetRequest{
		Name:    name,
		Address: &transport.AddressRequest{TerritoryID: &tid, Street: "MG Road"},
	}
}

func completeRequest(name string, territoryID uuid.UUID) transport.UpsertTargetRequest {
	req := incompleteRequest(name, territoryID)
	proof := "targets/proof/visit.jpg"
	req.ContactNumber = "098765 43210"
	req.Specialization = "Cardiology"
	req.Qualification = "MD"
	req.Address.PostalCode = "411001"
	req.ProofObjectKey = &proof
	return req
}

// target creates a record as admin and advances the clock so later records
// are newer.
func (f *fixture) target(req transport.UpsertTargetRequest) domain.Target {
	f.t.Helper()
	created, err := f.svc.UpsertTarget(f.ctx, f.admin, nil, req)
	require.NoError(f.t, err)
	f.advance(time.Minute)
	return created
}

func (f *fixture) assign(territoryID, agentID uuid.UUID) domain.Assignment {
	f.t.Helper()
	a, err := f.svc.CreateAssignment(f.ctx, transport.CreateAssignmentRequest{TerritoryID: territoryID, AgentID: agentID})
	require.NoError(f.t, err)
	f.advance(time.Minute)
	return a
}

func (f *fixture) owner(territoryID uuid.UUID) *uuid.UUID {
	f.t.Helper()
	var tr domain.Territory
	require.NoError(f.t, f.store.ReadTx(f.ctx, func(r repository.Reader) error {
		var err error
		tr, err = r.GetTerritory(f.ctx, territoryID)
		return err
	}))
	return tr.CurrentOwnerID
}

func (f *fixture) reload(targetID uuid.UUID) domain.Target {
	f.t.Helper()
	var t domain.Target
	require.NoError(f.t, f.store.ReadTx(f.ctx, func(r repository.Reader) error {
		var err error
		t, err = r.GetTarget(f.ctx, targetID)
		return err
	}))
	return t
}

func (f *fixture) visibleIDs(agentID uuid.UUID) []uuid.UUID {
	f.t.Helper()
	visible, err := f.svc.ListVisibleTargets(f.ctx, agentID)
	require.NoError(f.t, err)
	ids := make([]uuid.UUID, 0, len(visible))
	for _, t := range visible {
		ids = append(ids, t.ID)
	}
	return ids
}

func (f *fixture) checkCount(name string) int {
	f.t.Helper()
	report, err := f.svc.RunAudit(f.ctx, AuditTriggerManual)
	require.NoError(f.t, err)
	for _, c := range report.Checks {
		if c.Name == name {
			return c.Count
		}
	}
	f.t.Fatalf("check %s not in report", name)
	return 0
}

func (f *fixture) statusTargets(assignmentID uuid.UUID) []uuid.UUID {
	f.t.Helper()
	var rows []domain.VisitStatus
	require.NoError(f.t, f.store.ReadTx(f.ctx, func(r repository.Reader) error {
		var err error
		rows, err = r.ListVisitStatuses(f.ctx, []uuid.UUID{assignmentID})
		return err
	}))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TargetID)
	}
	return ids
}
