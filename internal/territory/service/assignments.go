package service

import (
	"context"
	"errors"

	"territory_backend/internal/events"
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/apperr"
	"territory_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreateAssignment = "assignments.Create"
	opDeleteAssignment = "assignments.Delete"
	opToggleTarget     = "assignments.ToggleTarget"
)

// CreateAssignment binds the agent to the territory, makes the agent the
// territory owner and seeds an active, unvisited status row for every
// canonical target of the territory. A repeat for the same pair is a renewal
// and seeds a fresh ledger.
func (s *Service) CreateAssignment(ctx context.Context, req transport.CreateAssignmentRequest) (domain.Assignment, error) {
	var (
		created   domain.Assignment
		territory domain.Territory
		agent     domain.Agent
		seeded    int
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		territory, err = tx.LockTerritory(ctx, req.TerritoryID)
		if err != nil {
			return notFoundOr(err, "territory not found")
		}

		agent, err = tx.GetAgent(ctx, req.AgentID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Validation("agent not eligible for assignment").
				WithDetails(map[string]string{"reason": "unknown agent"})
		}
		if err != nil {
			return err
		}
		if !agent.EligibleForAssignment() {
			return apperr.Validation("agent not eligible for assignment").
				WithDetails(map[string]string{"reason": "agent must be an active field agent"})
		}

		created = domain.Assignment{
			ID:          domain.NewID(),
			TerritoryID: territory.ID,
			AgentID:     agent.ID,
			Notes:       sanitize.Text(req.Notes),
			CreatedAt:   s.now().UTC(),
		}
		if err := tx.InsertAssignment(ctx, created); err != nil {
			return err
		}
		if err := tx.SetTerritoryOwner(ctx, territory.ID, &agent.ID); err != nil {
			return err
		}

		targets, err := s.canonicalTargets(ctx, tx, []uuid.UUID{territory.ID})
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(targets))
		for _, t := range targets {
			if _, err := tx.EnsureVisitStatus(ctx, created.ID, t.ID); err != nil {
				return err
			}
			ids = append(ids, t.ID)
		}
		seeded = len(ids)
		return tx.MarkTargetsAssigned(ctx, ids)
	})
	if err != nil {
		return domain.Assignment{}, fail(opCreateAssignment, err, "territory not found")
	}

	s.log.AssignmentEvent("created", created.ID.String(), territory.ID.String(), agent.ID.String())
	s.publish(ctx, events.AssignmentCreated{
		BaseEvent:     events.NewBaseEventAt(s.now().UTC()),
		AssignmentID:  created.ID,
		TerritoryID:   territory.ID,
		TerritoryName: territory.Name,
		AgentID:       agent.ID,
		AgentName:     agent.Name,
		AgentEmail:    agent.Email,
		SeededTargets: seeded,
		Notes:         created.Notes,
	})
	return created, nil
}

// DeleteAssignment removes one assignment with its status rows and re-derives
// the territory owner from the remaining history. The deleted agent's
// targets in the territory go back to pending; when no history is left every
// target of the territory does.
func (s *Service) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	var (
		deleted  domain.Assignment
		newOwner *uuid.UUID
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		deleted, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return notFoundOr(err, "assignment not found")
		}
		if _, err := tx.LockTerritory(ctx, deleted.TerritoryID); err != nil {
			return err
		}
		if err := tx.DeleteAssignment(ctx, deleted.ID); err != nil {
			return notFoundOr(err, "assignment not found")
		}

		latest, err := tx.LatestAssignment(ctx, deleted.TerritoryID)
		switch {
		case err == nil:
			owner := latest.AgentID
			newOwner = &owner
		case errors.Is(err, repository.ErrNotFound):
			newOwner = nil
		default:
			return err
		}

		if err := tx.SetTerritoryOwner(ctx, deleted.TerritoryID, newOwner); err != nil {
			return err
		}
		if err := tx.ResetAgentTargets(ctx, deleted.TerritoryID, deleted.AgentID); err != nil {
			return err
		}
		if newOwner == nil {
			return tx.ResetTerritoryTargets(ctx, deleted.TerritoryID)
		}
		return nil
	})
	if err != nil {
		return fail(opDeleteAssignment, err, "assignment not found")
	}

	s.log.AssignmentEvent("deleted", deleted.ID.String(), deleted.TerritoryID.String(), deleted.AgentID.String())
	s.publish(ctx, events.AssignmentDeleted{
		BaseEvent:    events.NewBaseEventAt(s.now().UTC()),
		AssignmentID: deleted.ID,
		TerritoryID:  deleted.TerritoryID,
		AgentID:      deleted.AgentID,
		NewOwnerID:   newOwner,
	})
	return nil
}

// ToggleTargetActive flips whether the target shows up for the assignment's
// agent and returns the new value. A missing status row is created first.
func (s *Service) ToggleTargetActive(ctx context.Context, assignmentID, targetID uuid.UUID) (bool, error) {
	var active bool
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return notFoundOr(err, "assignment not found")
		}
		t, err := tx.GetTarget(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "target not found")
		}
		if t.IsInternal || !t.InTerritory(a.TerritoryID) {
			return apperr.Validation("target does not belong to the assignment's territory")
		}
		if _, err := tx.EnsureVisitStatus(ctx, a.ID, t.ID); err != nil {
			return err
		}
		active, err = tx.ToggleVisitStatus(ctx, a.ID, t.ID)
		return err
	})
	if err != nil {
		return false, fail(opToggleTarget, err, "visit status not found")
	}
	return active, nil
}
