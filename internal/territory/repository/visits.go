package repository

import (
	"context"
	"fmt"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	visitStatusColumns = `id, assignment_id, target_id, is_active, is_visited, visited_at, visit_session_id`

	selectVisitStatuses = `SELECT ` + visitStatusColumns + `
		FROM assignment_visit_statuses
		WHERE assignment_id = ANY($1::uuid[])`

	selectVisitStatus = `SELECT ` + visitStatusColumns + `
		FROM assignment_visit_statuses
		WHERE assignment_id = $1 AND target_id = $2`

	countVisitStatuses = `
		SELECT assignment_id, COUNT(*)
		FROM assignment_visit_statuses
		GROUP BY assignment_id`

	// Concurrent first writers race on the unique key; the loser inserts
	// nothing and reads the winner's row.
	insertVisitStatusIfAbsent = `
		INSERT INTO assignment_visit_statuses (id, assignment_id, target_id, is_active, is_visited)
		VALUES ($1, $2, $3, TRUE, FALSE)
		ON CONFLICT (assignment_id, target_id) DO NOTHING`

	updateVisitState = `
		UPDATE assignment_visit_statuses
		SET is_visited = $2, visited_at = $3, visit_session_id = $4
		WHERE id = $1`

	toggleVisitStatus = `
		UPDATE assignment_visit_statuses
		SET is_active = NOT is_active
		WHERE assignment_id = $1 AND target_id = $2
		RETURNING is_active`

	sessionColumns = `id, agent_id, status, started_at, ended_at`

	selectSessionByID = `SELECT ` + sessionColumns + ` FROM visit_sessions WHERE id = $1`

	selectOngoingSession = `SELECT ` + sessionColumns + `
		FROM visit_sessions
		WHERE agent_id = $1 AND status = 'ongoing'`

	insertSession = `
		INSERT INTO visit_sessions (id, agent_id, status, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)`

	completeSession = `
		UPDATE visit_sessions
		SET status = 'completed', ended_at = $2
		WHERE id = $1 AND status = 'ongoing'`
)

func scanVisitStatus(row pgx.Row) (domain.VisitStatus, error) {
	var s domain.VisitStatus
	err := row.Scan(&s.ID, &s.AssignmentID, &s.TargetID, &s.IsActive, &s.IsVisited, &s.VisitedAt, &s.VisitSessionID)
	return s, err
}

func scanSession(row pgx.Row) (domain.VisitSession, error) {
	var (
		s      domain.VisitSession
		status string
	)
	if err := row.Scan(&s.ID, &s.AgentID, &status, &s.StartedAt, &s.EndedAt); err != nil {
		return domain.VisitSession{}, err
	}
	s.Status = domain.SessionStatus(status)
	return s, nil
}

func (q queries) ListVisitStatuses(ctx context.Context, assignmentIDs []uuid.UUID) ([]domain.VisitStatus, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx, selectVisitStatuses, assignmentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VisitStatus
	for rows.Next() {
		s, err := scanVisitStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q queries) CountVisitStatuses(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := q.db.Query(ctx, countVisitStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (q queries) EnsureVisitStatus(ctx context.Context, assignmentID, targetID uuid.UUID) (domain.VisitStatus, error) {
	if _, err := q.db.Exec(ctx, insertVisitStatusIfAbsent, domain.NewID(), assignmentID, targetID); err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.VisitStatus{}, ErrNotFound
		}
		return domain.VisitStatus{}, fmt.Errorf("ensure visit status: %w", err)
	}
	s, err := scanVisitStatus(q.db.QueryRow(ctx, selectVisitStatus, assignmentID, targetID))
	if err != nil {
		return domain.VisitStatus{}, notFound(err)
	}
	return s, nil
}

func (q queries) UpdateVisitState(ctx context.Context, row domain.VisitStatus) error {
	tag, err := q.db.Exec(ctx, updateVisitState, row.ID, row.IsVisited, row.VisitedAt, row.VisitSessionID)
	if err != nil {
		return fmt.Errorf("update visit state: %w", err)
	}
	return requireRow(tag)
}

func (q queries) ToggleVisitStatus(ctx context.Context, assignmentID, targetID uuid.UUID) (bool, error) {
	var active bool
	err := q.db.QueryRow(ctx, toggleVisitStatus, assignmentID, targetID).Scan(&active)
	if err != nil {
		return false, notFound(err)
	}
	return active, nil
}

func (q queries) GetVisitSession(ctx context.Context, id uuid.UUID) (domain.VisitSession, error) {
	s, err := scanSession(q.db.QueryRow(ctx, selectSessionByID, id))
	if err != nil {
		return domain.VisitSession{}, notFound(err)
	}
	return s, nil
}

func (q queries) GetOngoingSession(ctx context.Context, agentID uuid.UUID) (domain.VisitSession, error) {
	s, err := scanSession(q.db.QueryRow(ctx, selectOngoingSession, agentID))
	if err != nil {
		return domain.VisitSession{}, notFound(err)
	}
	return s, nil
}

func (q queries) InsertVisitSession(ctx context.Context, s domain.VisitSession) error {
	_, err := q.db.Exec(ctx, insertSession, s.ID, s.AgentID, string(s.Status), s.StartedAt, s.EndedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrOngoingSession
		}
		return fmt.Errorf("insert visit session: %w", err)
	}
	return nil
}

func (q queries) CompleteVisitSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	tag, err := q.db.Exec(ctx, completeSession, id, endedAt)
	if err != nil {
		return fmt.Errorf("complete visit session: %w", err)
	}
	return requireRow(tag)
}
