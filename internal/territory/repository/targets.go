package repository

import (
	"context"
	"fmt"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	targetSelect = `
		SELECT t.id, t.name, t.name_key, t.contact_number, t.specialization, t.qualification,
		       t.email, t.remarks, t.created_at, t.status, t.is_internal, t.visit_session_id,
		       t.proof_object_key, t.legacy_owner_id,
		       a.id, a.territory_id, a.street, a.landmark, a.postal_code
		FROM targets t
		LEFT JOIN addresses a ON a.id = t.address_id`

	targetOrder = ` ORDER BY t.created_at DESC, t.id DESC`

	selectTargetByID = targetSelect + ` WHERE t.id = $1`

	selectTargetsByTerritories = targetSelect + ` WHERE a.territory_id = ANY($1::uuid[])` + targetOrder

	selectTargetsByNameKeys = targetSelect + ` WHERE t.name_key = ANY($1::text[])` + targetOrder

	selectAllTargets = targetSelect + targetOrder

	upsertAddress = `
		INSERT INTO addresses (id, territory_id, street, landmark, postal_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET territory_id = EXCLUDED.territory_id,
		    street = EXCLUDED.street,
		    landmark = EXCLUDED.landmark,
		    postal_code = EXCLUDED.postal_code`

	insertTarget = `
		INSERT INTO targets (id, name, name_key, contact_number, specialization, qualification,
		                     email, remarks, created_at, address_id, status, is_internal,
		                     visit_session_id, proof_object_key, legacy_owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	updateTarget = `
		UPDATE targets
		SET name = $2, name_key = $3, contact_number = $4, specialization = $5,
		    qualification = $6, email = $7, remarks = $8, address_id = $9, status = $10,
		    is_internal = $11, visit_session_id = $12, proof_object_key = $13,
		    legacy_owner_id = $14
		WHERE id = $1`

	markTargetsAssigned = `
		UPDATE targets
		SET status = 'assigned',
		    visit_session_id = CASE WHEN status = 'visited_intent' THEN NULL ELSE visit_session_id END
		WHERE id = ANY($1::uuid[]) AND status <> 'internal'`

	resetAgentTargets = `
		UPDATE targets t
		SET legacy_owner_id = NULL, status = 'pending', visit_session_id = NULL
		FROM addresses a
		WHERE a.id = t.address_id
		  AND a.territory_id = $1
		  AND t.legacy_owner_id = $2
		  AND NOT t.is_internal`

	resetTerritoryTargets = `
		UPDATE targets t
		SET status = 'pending', visit_session_id = NULL
		FROM addresses a
		WHERE a.id = t.address_id
		  AND a.territory_id = $1
		  AND NOT t.is_internal`

	setTargetVisitIntent = `
		UPDATE targets
		SET status = 'visited_intent', visit_session_id = $2, legacy_owner_id = $3
		WHERE id = $1`
)

func scanTarget(row pgx.Row) (domain.Target, error) {
	var (
		t                        domain.Target
		status                   string
		addrID, addrTerritory    *uuid.UUID
		street, landmark, postal *string
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.NameKey, &t.ContactNumber, &t.Specialization, &t.Qualification,
		&t.Email, &t.Remarks, &t.CreatedAt, &status, &t.IsInternal, &t.VisitSessionID,
		&t.ProofObjectKey, &t.LegacyOwnerID,
		&addrID, &addrTerritory, &street, &landmark, &postal,
	)
	if err != nil {
		return domain.Target{}, err
	}
	t.Status = domain.TargetStatus(status)
	if addrID != nil {
		t.Address = &domain.Address{
			ID:          *addrID,
			TerritoryID: addrTerritory,
			Street:      deref(street),
			Landmark:    deref(landmark),
			PostalCode:  deref(postal),
		}
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (q queries) GetTarget(ctx context.Context, id uuid.UUID) (domain.Target, error) {
	t, err := scanTarget(q.db.QueryRow(ctx, selectTargetByID, id))
	if err != nil {
		return domain.Target{}, notFound(err)
	}
	return t, nil
}

func (q queries) ListTargetsByTerritories(ctx context.Context, territoryIDs []uuid.UUID) ([]domain.Target, error) {
	if len(territoryIDs) == 0 {
		return nil, nil
	}
	return q.listTargets(ctx, selectTargetsByTerritories, territoryIDs)
}

func (q queries) ListTargetsByNameKeys(ctx context.Context, keys []string) ([]domain.Target, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return q.listTargets(ctx, selectTargetsByNameKeys, keys)
}

func (q queries) ListAllTargets(ctx context.Context) ([]domain.Target, error) {
	return q.listTargets(ctx, selectAllTargets)
}

func (q queries) listTargets(ctx context.Context, sql string, args ...any) ([]domain.Target, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) saveAddress(ctx context.Context, a *domain.Address) (*uuid.UUID, error) {
	if a == nil {
		return nil, nil
	}
	if _, err := q.db.Exec(ctx, upsertAddress, a.ID, a.TerritoryID, a.Street, a.Landmark, a.PostalCode); err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save address: %w", err)
	}
	return &a.ID, nil
}

func (q queries) InsertTarget(ctx context.Context, t domain.Target) error {
	addressID, err := q.saveAddress(ctx, t.Address)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, insertTarget,
		t.ID, t.Name, t.NameKey, t.ContactNumber, t.Specialization, t.Qualification,
		t.Email, t.Remarks, t.CreatedAt, addressID, string(t.Status), t.IsInternal,
		t.VisitSessionID, t.ProofObjectKey, t.LegacyOwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

func (q queries) UpdateTarget(ctx context.Context, t domain.Target) error {
	addressID, err := q.saveAddress(ctx, t.Address)
	if err != nil {
		return err
	}
	tag, err := q.db.Exec(ctx, updateTarget,
		t.ID, t.Name, t.NameKey, t.ContactNumber, t.Specialization, t.Qualification,
		t.Email, t.Remarks, addressID, string(t.Status), t.IsInternal,
		t.VisitSessionID, t.ProofObjectKey, t.LegacyOwnerID,
	)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	return requireRow(tag)
}

func (q queries) MarkTargetsAssigned(ctx context.Context, targetIDs []uuid.UUID) error {
	if len(targetIDs) == 0 {
		return nil
	}
	if _, err := q.db.Exec(ctx, markTargetsAssigned, targetIDs); err != nil {
		return fmt.Errorf("mark targets assigned: %w", err)
	}
	return nil
}

func (q queries) ResetAgentTargets(ctx context.Context, territoryID, agentID uuid.UUID) error {
	if _, err := q.db.Exec(ctx, resetAgentTargets, territoryID, agentID); err != nil {
		return fmt.Errorf("reset agent targets: %w", err)
	}
	return nil
}

func (q queries) ResetTerritoryTargets(ctx context.Context, territoryID uuid.UUID) error {
	if _, err := q.db.Exec(ctx, resetTerritoryTargets, territoryID); err != nil {
		return fmt.Errorf("reset territory targets: %w", err)
	}
	return nil
}

func (q queries) SetTargetVisitIntent(ctx context.Context, targetID, sessionID, agentID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, setTargetVisitIntent, targetID, sessionID, agentID)
	if err != nil {
		return fmt.Errorf("set visit intent: %w", err)
	}
	return requireRow(tag)
}
