package repository

import (
	"context"
	"fmt"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	agentColumns     = `id, name, email, role, is_active, created_at`
	territoryColumns = `id, name, city, region, current_owner_id, created_at`

	selectAgentByID = `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	selectTerritoryByID = `SELECT ` + territoryColumns + ` FROM territories WHERE id = $1`

	selectTerritoryForUpdate = `SELECT ` + territoryColumns + ` FROM territories WHERE id = $1 FOR UPDATE`

	selectTerritories = `SELECT ` + territoryColumns + ` FROM territories ORDER BY name`

	selectTerritoriesOwnedBy = `SELECT ` + territoryColumns + `
		FROM territories
		WHERE current_owner_id = $1
		ORDER BY name`

	updateTerritoryOwner = `UPDATE territories SET current_owner_id = $2 WHERE id = $1`

	insertAgent = `
		INSERT INTO agents (id, name, email, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertTerritory = `
		INSERT INTO territories (id, name, city, region, current_owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

func scanTerritory(row pgx.Row) (domain.Territory, error) {
	var t domain.Territory
	err := row.Scan(&t.ID, &t.Name, &t.City, &t.Region, &t.CurrentOwnerID, &t.CreatedAt)
	return t, err
}

func (q queries) GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	var a domain.Agent
	err := q.db.QueryRow(ctx, selectAgentByID, id).Scan(
		&a.ID, &a.Name, &a.Email, &a.Role, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return domain.Agent{}, notFound(err)
	}
	return a, nil
}

func (q queries) GetTerritory(ctx context.Context, id uuid.UUID) (domain.Territory, error) {
	t, err := scanTerritory(q.db.QueryRow(ctx, selectTerritoryByID, id))
	if err != nil {
		return domain.Territory{}, notFound(err)
	}
	return t, nil
}

func (q queries) LockTerritory(ctx context.Context, id uuid.UUID) (domain.Territory, error) {
	t, err := scanTerritory(q.db.QueryRow(ctx, selectTerritoryForUpdate, id))
	if err != nil {
		return domain.Territory{}, notFound(err)
	}
	return t, nil
}

func (q queries) ListTerritories(ctx context.Context) ([]domain.Territory, error) {
	return q.listTerritories(ctx, selectTerritories)
}

func (q queries) ListTerritoriesOwnedBy(ctx context.Context, agentID uuid.UUID) ([]domain.Territory, error) {
	return q.listTerritories(ctx, selectTerritoriesOwnedBy, agentID)
}

func (q queries) listTerritories(ctx context.Context, sql string, args ...any) ([]domain.Territory, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) SetTerritoryOwner(ctx context.Context, territoryID uuid.UUID, ownerID *uuid.UUID) error {
	tag, err := q.db.Exec(ctx, updateTerritoryOwner, territoryID, ownerID)
	if err != nil {
		return fmt.Errorf("set territory owner: %w", err)
	}
	return requireRow(tag)
}

func (q queries) InsertAgent(ctx context.Context, a domain.Agent) error {
	_, err := q.db.Exec(ctx, insertAgent, a.ID, a.Name, a.Email, a.Role, a.IsActive, a.CreatedAt)
	return err
}

func (q queries) InsertTerritory(ctx context.Context, t domain.Territory) error {
	_, err := q.db.Exec(ctx, insertTerritory, t.ID, t.Name, t.City, t.Region, t.CurrentOwnerID, t.CreatedAt)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateName
	}
	return err
}
