package service

import (
	"context"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"

	"github.com/google/uuid"
)

const opListVisible = "targets.ListVisible"

// ListVisibleTargets returns the targets the agent should work: canonical
// targets of every territory the agent currently owns, minus those the
// agent's latest assignment to that territory has deactivated or marked
// visited. Rows of older renewals are ignored. Newest first.
func (s *Service) ListVisibleTargets(ctx context.Context, agentID uuid.UUID) ([]domain.Target, error) {
	var visible []domain.Target
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		if _, err := r.GetAgent(ctx, agentID); err != nil {
			return notFoundOr(err, "agent not found")
		}
		owned, err := r.ListTerritoriesOwnedBy(ctx, agentID)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			visible = []domain.Target{}
			return nil
		}
		territoryIDs := make([]uuid.UUID, 0, len(owned))
		for _, t := range owned {
			territoryIDs = append(territoryIDs, t.ID)
		}

		candidates, err := s.canonicalTargets(ctx, r, territoryIDs)
		if err != nil {
			return err
		}
		latest, err := r.LatestAssignmentsForAgent(ctx, agentID, territoryIDs)
		if err != nil {
			return err
		}
		assignmentIDs := make([]uuid.UUID, 0, len(latest))
		for _, a := range latest {
			assignmentIDs = append(assignmentIDs, a.ID)
		}
		var rows []domain.VisitStatus
		if len(assignmentIDs) > 0 {
			if rows, err = r.ListVisitStatuses(ctx, assignmentIDs); err != nil {
				return err
			}
		}
		visible = domain.FilterVisible(candidates, rows)
		return nil
	})
	if err != nil {
		return nil, fail(opListVisible, err, "agent not found")
	}
	return visible, nil
}
