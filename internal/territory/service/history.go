package service

import (
	"context"
	"errors"
	"time"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"

	"github.com/google/uuid"
)

const (
	opListAssignments  = "assignments.List"
	opAssignmentDetail = "assignments.Detail"
)

// CompletionStats summarizes an assignment's ledger over the canonical
// targets of its territory. Targets without a row count as active and not
// visited.
type CompletionStats struct {
	Total   int
	Enabled int
	Visited int
}

// AssignmentSummary is one entry of the assignment history.
type AssignmentSummary struct {
	Assignment    domain.Assignment
	TerritoryName string
	AgentName     string
	// IsCurrent is set on the assignment that currently makes its agent the
	// territory owner.
	IsCurrent bool
	Stats     CompletionStats
}

// AssignmentTarget is a canonical target with its status under one assignment.
type AssignmentTarget struct {
	Target    domain.Target
	IsActive  bool
	IsVisited bool
	VisitedAt *time.Time
}

type AssignmentDetail struct {
	Summary AssignmentSummary
	Targets []AssignmentTarget
}

// historyView caches per-request lookups while building summaries.
type historyView struct {
	s          *Service
	r          repository.Reader
	territory  map[uuid.UUID]domain.Territory
	agents     map[uuid.UUID]domain.Agent
	canonical  map[uuid.UUID][]domain.Target
	latest     map[uuid.UUID]domain.Assignment
	statusRows map[uuid.UUID]map[uuid.UUID]domain.VisitStatus
}

func (s *Service) newHistoryView(r repository.Reader) *historyView {
	return &historyView{
		s:          s,
		r:          r,
		territory:  map[uuid.UUID]domain.Territory{},
		agents:     map[uuid.UUID]domain.Agent{},
		canonical:  map[uuid.UUID][]domain.Target{},
		latest:     map[uuid.UUID]domain.Assignment{},
		statusRows: map[uuid.UUID]map[uuid.UUID]domain.VisitStatus{},
	}
}

func (v *historyView) load(ctx context.Context, assignments []domain.Assignment) error {
	var ids []uuid.UUID
	for _, a := range assignments {
		ids = append(ids, a.ID)
		if _, ok := v.territory[a.TerritoryID]; !ok {
			t, err := v.r.GetTerritory(ctx, a.TerritoryID)
			if err != nil {
				return err
			}
			v.territory[a.TerritoryID] = t
			targets, err := v.s.canonicalTargets(ctx, v.r, []uuid.UUID{a.TerritoryID})
			if err != nil {
				return err
			}
			v.canonical[a.TerritoryID] = targets
			latest, err := v.r.LatestAssignment(ctx, a.TerritoryID)
			if err == nil {
				v.latest[a.TerritoryID] = latest
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}
		if _, ok := v.agents[a.AgentID]; !ok {
			agent, err := v.r.GetAgent(ctx, a.AgentID)
			if err != nil {
				return err
			}
			v.agents[a.AgentID] = agent
		}
	}
	if len(ids) == 0 {
		return nil
	}
	rows, err := v.r.ListVisitStatuses(ctx, ids)
	if err != nil {
		return err
	}
	for _, row := range rows {
		byTarget, ok := v.statusRows[row.AssignmentID]
		if !ok {
			byTarget = map[uuid.UUID]domain.VisitStatus{}
			v.statusRows[row.AssignmentID] = byTarget
		}
		byTarget[row.TargetID] = row
	}
	return nil
}

func (v *historyView) summary(a domain.Assignment) AssignmentSummary {
	territory := v.territory[a.TerritoryID]
	latest, hasLatest := v.latest[a.TerritoryID]
	out := AssignmentSummary{
		Assignment:    a,
		TerritoryName: territory.Name,
		AgentName:     v.agents[a.AgentID].Name,
		IsCurrent: hasLatest && latest.ID == a.ID && territory.CurrentOwnerID != nil &&
			*territory.CurrentOwnerID == a.AgentID,
	}
	rows := v.statusRows[a.ID]
	for _, t := range v.canonical[a.TerritoryID] {
		out.Stats.Total++
		row, ok := rows[t.ID]
		if !ok || row.IsActive {
			out.Stats.Enabled++
		}
		if ok && row.IsVisited {
			out.Stats.Visited++
		}
	}
	return out
}

// ListAssignments returns the assignment history, newest first, with
// completion stats. It never writes.
func (s *Service) ListAssignments(ctx context.Context, filter repository.AssignmentFilter) ([]AssignmentSummary, error) {
	var out []AssignmentSummary
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		assignments, err := r.ListAssignments(ctx, filter)
		if err != nil {
			return err
		}
		view := s.newHistoryView(r)
		if err := view.load(ctx, assignments); err != nil {
			return err
		}
		out = make([]AssignmentSummary, 0, len(assignments))
		for _, a := range assignments {
			out = append(out, view.summary(a))
		}
		return nil
	})
	if err != nil {
		return nil, fail(opListAssignments, err, "assignment not found")
	}
	return out, nil
}

// GetAssignmentDetail returns one assignment with the status of every
// canonical target of its territory.
func (s *Service) GetAssignmentDetail(ctx context.Context, assignmentID uuid.UUID) (AssignmentDetail, error) {
	var detail AssignmentDetail
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		a, err := r.GetAssignment(ctx, assignmentID)
		if err != nil {
			return notFoundOr(err, "assignment not found")
		}
		view := s.newHistoryView(r)
		if err := view.load(ctx, []domain.Assignment{a}); err != nil {
			return err
		}
		detail.Summary = view.summary(a)
		rows := view.statusRows[a.ID]
		detail.Targets = make([]AssignmentTarget, 0, len(view.canonical[a.TerritoryID]))
		for _, t := range view.canonical[a.TerritoryID] {
			item := AssignmentTarget{Target: t, IsActive: true}
			if row, ok := rows[t.ID]; ok {
				item.IsActive = row.IsActive
				item.IsVisited = row.IsVisited
				item.VisitedAt = row.VisitedAt
			}
			detail.Targets = append(detail.Targets, item)
		}
		return nil
	})
	if err != nil {
		return AssignmentDetail{}, fail(opAssignmentDetail, err, "assignment not found")
	}
	return detail, nil
}
