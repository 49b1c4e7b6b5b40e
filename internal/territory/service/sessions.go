package service

import (
	"context"
	"errors"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	opStartSession   = "sessions.Start"
	opEndSession     = "sessions.End"
	opCurrentSession = "sessions.Current"
)

// StartSession opens a visit session for the agent. An agent has at most one
// ongoing session.
func (s *Service) StartSession(ctx context.Context, agentID uuid.UUID) (domain.VisitSession, error) {
	session := domain.VisitSession{
		ID:        domain.NewID(),
		AgentID:   agentID,
		Status:    domain.SessionOngoing,
		StartedAt: s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		agent, err := tx.GetAgent(ctx, agentID)
		if err != nil {
			return notFoundOr(err, "agent not found")
		}
		if !agent.IsActive {
			return apperr.Validation("agent is inactive")
		}
		err = tx.InsertVisitSession(ctx, session)
		if errors.Is(err, repository.ErrOngoingSession) {
			return apperr.InvalidState("agent already has an ongoing session")
		}
		return err
	})
	if err != nil {
		return domain.VisitSession{}, fail(opStartSession, err, "agent not found")
	}
	return session, nil
}

// EndSession completes the caller's session.
func (s *Service) EndSession(ctx context.Context, agentID, sessionID uuid.UUID) (domain.VisitSession, error) {
	var ended domain.VisitSession
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		session, err := tx.GetVisitSession(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, "visit session not found")
		}
		if session.AgentID != agentID {
			return apperr.OwnershipMismatch("session not owned by caller")
		}
		if session.Status == domain.SessionCompleted {
			return apperr.InvalidState("visit session already completed")
		}
		endedAt := s.now().UTC()
		if err := tx.CompleteVisitSession(ctx, session.ID, endedAt); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.InvalidState("visit session already completed")
			}
			return err
		}
		session.Status = domain.SessionCompleted
		session.EndedAt = &endedAt
		ended = session
		return nil
	})
	if err != nil {
		return domain.VisitSession{}, fail(opEndSession, err, "visit session not found")
	}
	return ended, nil
}

// CurrentSession returns the agent's ongoing session.
func (s *Service) CurrentSession(ctx context.Context, agentID uuid.UUID) (domain.VisitSession, error) {
	var session domain.VisitSession
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		var err error
		session, err = r.GetOngoingSession(ctx, agentID)
		return notFoundOr(err, "no ongoing visit session")
	})
	if err != nil {
		return domain.VisitSession{}, fail(opCurrentSession, err, "no ongoing visit session")
	}
	return session, nil
}
