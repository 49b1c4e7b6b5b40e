package repository

import (
	"context"
	"fmt"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	assignmentColumns = `id, territory_id, agent_id, notes, created_at`

	selectAssignmentByID = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	selectAssignments = `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE ($1::uuid IS NULL OR agent_id = $1)
		  AND ($2::uuid IS NULL OR territory_id = $2)
		ORDER BY created_at DESC, id DESC`

	selectLatestAssignment = `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE territory_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	selectLatestAssignmentsForAgent = `SELECT DISTINCT ON (territory_id) ` + assignmentColumns + `
		FROM assignments
		WHERE agent_id = $1 AND territory_id = ANY($2::uuid[])
		ORDER BY territory_id, created_at DESC, id DESC`

	insertAssignment = `
		INSERT INTO assignments (id, territory_id, agent_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	deleteAssignment = `DELETE FROM assignments WHERE id = $1`
)

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.TerritoryID, &a.AgentID, &a.Notes, &a.CreatedAt)
	return a, err
}

func (q queries) GetAssignment(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	a, err := scanAssignment(q.db.QueryRow(ctx, selectAssignmentByID, id))
	if err != nil {
		return domain.Assignment{}, notFound(err)
	}
	return a, nil
}

func (q queries) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error) {
	return q.listAssignments(ctx, selectAssignments, filter.AgentID, filter.TerritoryID)
}

func (q queries) LatestAssignment(ctx context.Context, territoryID uuid.UUID) (domain.Assignment, error) {
	a, err := scanAssignment(q.db.QueryRow(ctx, selectLatestAssignment, territoryID))
	if err != nil {
		return domain.Assignment{}, notFound(err)
	}
	return a, nil
}

func (q queries) LatestAssignmentsForAgent(ctx context.Context, agentID uuid.UUID, territoryIDs []uuid.UUID) ([]domain.Assignment, error) {
	if len(territoryIDs) == 0 {
		return nil, nil
	}
	return q.listAssignments(ctx, selectLatestAssignmentsForAgent, agentID, territoryIDs)
}

func (q queries) listAssignments(ctx context.Context, sql string, args ...any) ([]domain.Assignment, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q queries) InsertAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := q.db.Exec(ctx, insertAssignment, a.ID, a.TerritoryID, a.AgentID, a.Notes, a.CreatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes the row; its visit status rows go with it through
// ON DELETE CASCADE.
func (q queries) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteAssignment, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireRow(tag)
}
