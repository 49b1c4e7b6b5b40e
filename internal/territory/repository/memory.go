package repository

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. A write transaction works on a copy of
// the state and swaps it in on success, so a failed unit of work leaves
// nothing behind. Write transactions are serialized.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	agents      map[uuid.UUID]domain.Agent
	territories map[uuid.UUID]domain.Territory
	assignments map[uuid.UUID]domain.Assignment
	targets     map[uuid.UUID]domain.Target
	statuses    map[uuid.UUID]domain.VisitStatus
	sessions    map[uuid.UUID]domain.VisitSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		agents:      map[uuid.UUID]domain.Agent{},
		territories: map[uuid.UUID]domain.Territory{},
		assignments: map[uuid.UUID]domain.Assignment{},
		targets:     map[uuid.UUID]domain.Target{},
		statuses:    map[uuid.UUID]domain.VisitStatus{},
		sessions:    map[uuid.UUID]domain.VisitSession{},
	}}
}

var _ Store = (*MemoryStore)(nil)
var _ Tx = (*memoryTx)(nil)

func (s memoryState) clone() memoryState {
	return memoryState{
		agents:      cloneMap(s.agents),
		territories: cloneMap(s.territories),
		assignments: cloneMap(s.assignments),
		targets:     cloneMap(s.targets),
		statuses:    cloneMap(s.statuses),
		sessions:    cloneMap(s.sessions),
	}
}

func cloneMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) ReadTx(ctx context.Context, fn func(r Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{state: m.state})
}

// InsertAgent seeds an agent outside any transaction.
func (m *MemoryStore) InsertAgent(ctx context.Context, a domain.Agent) error {
	return m.InTx(ctx, func(tx Tx) error { return tx.(*memoryTx).InsertAgent(ctx, a) })
}

// InsertTerritory seeds a territory outside any transaction.
func (m *MemoryStore) InsertTerritory(ctx context.Context, t domain.Territory) error {
	return m.InTx(ctx, func(tx Tx) error { return tx.(*memoryTx).InsertTerritory(ctx, t) })
}

type memoryTx struct {
	state memoryState
}

// Values handed in or out are copied so callers never alias stored pointers.
func copyTarget(t domain.Target) domain.Target {
	if t.Address != nil {
		addr := *t.Address
		addr.TerritoryID = copyID(addr.TerritoryID)
		t.Address = &addr
	}
	t.VisitSessionID = copyID(t.VisitSessionID)
	t.LegacyOwnerID = copyID(t.LegacyOwnerID)
	if t.ProofObjectKey != nil {
		key := *t.ProofObjectKey
		t.ProofObjectKey = &key
	}
	return t
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}

func copyStatus(s domain.VisitStatus) domain.VisitStatus {
	s.VisitedAt = copyTime(s.VisitedAt)
	s.VisitSessionID = copyID(s.VisitSessionID)
	return s
}

func idLess(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }

func newestAssignmentFirst(a, b domain.Assignment) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return idLess(b.ID, a.ID)
}

// ---- DirectoryReader / DirectoryWriter ----

func (t *memoryTx) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	a, ok := t.state.agents[id]
	if !ok {
		return domain.Agent{}, ErrNotFound
	}
	return a, nil
}

func (t *memoryTx) GetTerritory(_ context.Context, id uuid.UUID) (domain.Territory, error) {
	tr, ok := t.state.territories[id]
	if !ok {
		return domain.Territory{}, ErrNotFound
	}
	tr.CurrentOwnerID = copyID(tr.CurrentOwnerID)
	return tr, nil
}

func (t *memoryTx) LockTerritory(ctx context.Context, id uuid.UUID) (domain.Territory, error) {
	return t.GetTerritory(ctx, id)
}

func (t *memoryTx) ListTerritories(_ context.Context) ([]domain.Territory, error) {
	return t.territoriesWhere(func(domain.Territory) bool { return true }), nil
}

func (t *memoryTx) ListTerritoriesOwnedBy(_ context.Context, agentID uuid.UUID) ([]domain.Territory, error) {
	return t.territoriesWhere(func(tr domain.Territory) bool {
		return tr.CurrentOwnerID != nil && *tr.CurrentOwnerID == agentID
	}), nil
}

func (t *memoryTx) territoriesWhere(keep func(domain.Territory) bool) []domain.Territory {
	var out []domain.Territory
	for _, tr := range t.state.territories {
		if keep(tr) {
			tr.CurrentOwnerID = copyID(tr.CurrentOwnerID)
			out = append(out, tr)
		}
	}
	slices.SortFunc(out, func(a, b domain.Territory) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return idLess(a.ID, b.ID)
	})
	return out
}

func (t *memoryTx) SetTerritoryOwner(_ context.Context, territoryID uuid.UUID, ownerID *uuid.UUID) error {
	tr, ok := t.state.territories[territoryID]
	if !ok {
		return ErrNotFound
	}
	tr.CurrentOwnerID = copyID(ownerID)
	t.state.territories[territoryID] = tr
	return nil
}

func (t *memoryTx) InsertAgent(_ context.Context, a domain.Agent) error {
	t.state.agents[a.ID] = a
	return nil
}

func (t *memoryTx) InsertTerritory(_ context.Context, tr domain.Territory) error {
	for _, existing := range t.state.territories {
		if existing.Name == tr.Name {
			return ErrDuplicateName
		}
	}
	tr.CurrentOwnerID = copyID(tr.CurrentOwnerID)
	t.state.territories[tr.ID] = tr
	return nil
}

// ---- AssignmentReader / AssignmentWriter ----

func (t *memoryTx) GetAssignment(_ context.Context, id uuid.UUID) (domain.Assignment, error) {
	a, ok := t.state.assignments[id]
	if !ok {
		return domain.Assignment{}, ErrNotFound
	}
	return a, nil
}

func (t *memoryTx) ListAssignments(_ context.Context, filter AssignmentFilter) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range t.state.assignments {
		if filter.AgentID != nil && a.AgentID != *filter.AgentID {
			continue
		}
		if filter.TerritoryID != nil && a.TerritoryID != *filter.TerritoryID {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, newestAssignmentFirst)
	return out, nil
}

func (t *memoryTx) LatestAssignment(ctx context.Context, territoryID uuid.UUID) (domain.Assignment, error) {
	all, _ := t.ListAssignments(ctx, AssignmentFilter{TerritoryID: &territoryID})
	if len(all) == 0 {
		return domain.Assignment{}, ErrNotFound
	}
	return all[0], nil
}

func (t *memoryTx) LatestAssignmentsForAgent(ctx context.Context, agentID uuid.UUID, territoryIDs []uuid.UUID) ([]domain.Assignment, error) {
	all, _ := t.ListAssignments(ctx, AssignmentFilter{AgentID: &agentID})
	var scoped []domain.Assignment
	for _, a := range all {
		if slices.Contains(territoryIDs, a.TerritoryID) {
			scoped = append(scoped, a)
		}
	}
	latest := domain.LatestAssignments(scoped)
	out := make([]domain.Assignment, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	slices.SortFunc(out, newestAssignmentFirst)
	return out, nil
}

func (t *memoryTx) InsertAssignment(_ context.Context, a domain.Assignment) error {
	if _, ok := t.state.territories[a.TerritoryID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.state.agents[a.AgentID]; !ok {
		return ErrNotFound
	}
	t.state.assignments[a.ID] = a
	return nil
}

func (t *memoryTx) DeleteAssignment(_ context.Context, id uuid.UUID) error {
	if _, ok := t.state.assignments[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.assignments, id)
	for sid, s := range t.state.statuses {
		if s.AssignmentID == id {
			delete(t.state.statuses, sid)
		}
	}
	return nil
}

// ---- TargetReader / TargetWriter ----

func (t *memoryTx) GetTarget(_ context.Context, id uuid.UUID) (domain.Target, error) {
	tgt, ok := t.state.targets[id]
	if !ok {
		return domain.Target{}, ErrNotFound
	}
	return copyTarget(tgt), nil
}

func (t *memoryTx) targetsWhere(keep func(domain.Target) bool) []domain.Target {
	var out []domain.Target
	for _, tgt := range t.state.targets {
		if keep(tgt) {
			out = append(out, copyTarget(tgt))
		}
	}
	domain.SortNewestFirst(out)
	return out
}

func (t *memoryTx) ListTargetsByTerritories(_ context.Context, territoryIDs []uuid.UUID) ([]domain.Target, error) {
	return t.targetsWhere(func(tgt domain.Target) bool {
		tid := tgt.TerritoryID()
		return tid != nil && slices.Contains(territoryIDs, *tid)
	}), nil
}

func (t *memoryTx) ListTargetsByNameKeys(_ context.Context, keys []string) ([]domain.Target, error) {
	return t.targetsWhere(func(tgt domain.Target) bool {
		return slices.Contains(keys, tgt.NameKey)
	}), nil
}

func (t *memoryTx) ListAllTargets(_ context.Context) ([]domain.Target, error) {
	return t.targetsWhere(func(domain.Target) bool { return true }), nil
}

func (t *memoryTx) checkAddress(a *domain.Address) error {
	if a == nil || a.TerritoryID == nil {
		return nil
	}
	if _, ok := t.state.territories[*a.TerritoryID]; !ok {
		return ErrNotFound
	}
	return nil
}

func (t *memoryTx) InsertTarget(_ context.Context, tgt domain.Target) error {
	if err := t.checkAddress(tgt.Address); err != nil {
		return err
	}
	t.state.targets[tgt.ID] = copyTarget(tgt)
	return nil
}

func (t *memoryTx) UpdateTarget(_ context.Context, tgt domain.Target) error {
	if _, ok := t.state.targets[tgt.ID]; !ok {
		return ErrNotFound
	}
	if err := t.checkAddress(tgt.Address); err != nil {
		return err
	}
	t.state.targets[tgt.ID] = copyTarget(tgt)
	return nil
}

func (t *memoryTx) MarkTargetsAssigned(_ context.Context, targetIDs []uuid.UUID) error {
	for _, id := range targetIDs {
		tgt, ok := t.state.targets[id]
		if !ok || tgt.Status == domain.StatusInternal {
			continue
		}
		if tgt.Status == domain.StatusVisitedIntent {
			tgt.VisitSessionID = nil
		}
		tgt.Status = domain.StatusAssigned
		t.state.targets[id] = tgt
	}
	return nil
}

func (t *memoryTx) ResetAgentTargets(_ context.Context, territoryID, agentID uuid.UUID) error {
	for id, tgt := range t.state.targets {
		if tgt.IsInternal || !tgt.InTerritory(territoryID) {
			continue
		}
		if tgt.LegacyOwnerID == nil || *tgt.LegacyOwnerID != agentID {
			continue
		}
		tgt.LegacyOwnerID = nil
		tgt.Status = domain.StatusPending
		tgt.VisitSessionID = nil
		t.state.targets[id] = tgt
	}
	return nil
}

func (t *memoryTx) ResetTerritoryTargets(_ context.Context, territoryID uuid.UUID) error {
	for id, tgt := range t.state.targets {
		if tgt.IsInternal || !tgt.InTerritory(territoryID) {
			continue
		}
		tgt.Status = domain.StatusPending
		tgt.VisitSessionID = nil
		t.state.targets[id] = tgt
	}
	return nil
}

func (t *memoryTx) SetTargetVisitIntent(_ context.Context, targetID, sessionID, agentID uuid.UUID) error {
	tgt, ok := t.state.targets[targetID]
	if !ok {
		return ErrNotFound
	}
	tgt.Status = domain.StatusVisitedIntent
	tgt.VisitSessionID = &sessionID
	tgt.LegacyOwnerID = &agentID
	t.state.targets[targetID] = tgt
	return nil
}

// ---- VisitReader / VisitWriter ----

func (t *memoryTx) findStatus(assignmentID, targetID uuid.UUID) (domain.VisitStatus, bool) {
	for _, s := range t.state.statuses {
		if s.AssignmentID == assignmentID && s.TargetID == targetID {
			return s, true
		}
	}
	return domain.VisitStatus{}, false
}

func (t *memoryTx) ListVisitStatuses(_ context.Context, assignmentIDs []uuid.UUID) ([]domain.VisitStatus, error) {
	var out []domain.VisitStatus
	for _, s := range t.state.statuses {
		if slices.Contains(assignmentIDs, s.AssignmentID) {
			out = append(out, copyStatus(s))
		}
	}
	slices.SortFunc(out, func(a, b domain.VisitStatus) int { return idLess(a.ID, b.ID) })
	return out, nil
}

func (t *memoryTx) CountVisitStatuses(_ context.Context) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, s := range t.state.statuses {
		counts[s.AssignmentID]++
	}
	return counts, nil
}

func (t *memoryTx) EnsureVisitStatus(_ context.Context, assignmentID, targetID uuid.UUID) (domain.VisitStatus, error) {
	if s, ok := t.findStatus(assignmentID, targetID); ok {
		return copyStatus(s), nil
	}
	if _, ok := t.state.assignments[assignmentID]; !ok {
		return domain.VisitStatus{}, ErrNotFound
	}
	if _, ok := t.state.targets[targetID]; !ok {
		return domain.VisitStatus{}, ErrNotFound
	}
	s := domain.VisitStatus{
		ID:           domain.NewID(),
		AssignmentID: assignmentID,
		TargetID:     targetID,
		IsActive:     true,
	}
	t.state.statuses[s.ID] = s
	return copyStatus(s), nil
}

func (t *memoryTx) UpdateVisitState(_ context.Context, row domain.VisitStatus) error {
	s, ok := t.state.statuses[row.ID]
	if !ok {
		return ErrNotFound
	}
	s.IsVisited = row.IsVisited
	s.VisitedAt = copyTime(row.VisitedAt)
	s.VisitSessionID = copyID(row.VisitSessionID)
	t.state.statuses[row.ID] = s
	return nil
}

func (t *memoryTx) ToggleVisitStatus(_ context.Context, assignmentID, targetID uuid.UUID) (bool, error) {
	s, ok := t.findStatus(assignmentID, targetID)
	if !ok {
		return false, ErrNotFound
	}
	s.IsActive = !s.IsActive
	t.state.statuses[s.ID] = s
	return s.IsActive, nil
}

func (t *memoryTx) GetVisitSession(_ context.Context, id uuid.UUID) (domain.VisitSession, error) {
	s, ok := t.state.sessions[id]
	if !ok {
		return domain.VisitSession{}, ErrNotFound
	}
	s.EndedAt = copyTime(s.EndedAt)
	return s, nil
}

func (t *memoryTx) GetOngoingSession(_ context.Context, agentID uuid.UUID) (domain.VisitSession, error) {
	for _, s := range t.state.sessions {
		if s.AgentID == agentID && s.Status == domain.SessionOngoing {
			return s, nil
		}
	}
	return domain.VisitSession{}, ErrNotFound
}

func (t *memoryTx) InsertVisitSession(_ context.Context, s domain.VisitSession) error {
	if _, ok := t.state.agents[s.AgentID]; !ok {
		return ErrNotFound
	}
	if s.Status == domain.SessionOngoing {
		for _, existing := range t.state.sessions {
			if existing.AgentID == s.AgentID && existing.Status == domain.SessionOngoing {
				return ErrOngoingSession
			}
		}
	}
	s.EndedAt = copyTime(s.EndedAt)
	t.state.sessions[s.ID] = s
	return nil
}

func (t *memoryTx) CompleteVisitSession(_ context.Context, id uuid.UUID, endedAt time.Time) error {
	s, ok := t.state.sessions[id]
	if !ok || s.Status != domain.SessionOngoing {
		return ErrNotFound
	}
	s.Status = domain.SessionCompleted
	s.EndedAt = &endedAt
	t.state.sessions[id] = s
	return nil
}
