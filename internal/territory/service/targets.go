package service

import (
	"context"
	"strings"

	"territory_backend/internal/adapters/storage"
	"territory_backend/internal/events"
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/apperr"
	"territory_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opUpsertTarget  = "targets.Upsert"
	opMarkVisited   = "targets.MarkVisited"
	opTargetHistory = "targets.History"
	opMasterList    = "targets.MasterList"
	opProofUpload   = "targets.ProofUploadURL"
	opProofDownload = "targets.ProofDownloadURL"

	proofFolderPrefix = "targets/"
)

// VisitResult is the outcome of a mark-visited request.
type VisitResult struct {
	Target        domain.Target
	Visited       bool
	Status        *domain.VisitStatus
	MissingFields []string
}

// UpsertTarget creates the target when id is nil and replaces its editable
// fields otherwise, then re-evaluates its visit status for the territory
// owner's latest assignment. Agents may only write targets of territories
// they own.
func (s *Service) UpsertTarget(ctx context.Context, caller Caller, id *uuid.UUID, req transport.UpsertTargetRequest) (domain.Target, error) {
	if err := s.verifyProof(ctx, req.ProofObjectKey); err != nil {
		return domain.Target{}, err
	}

	var saved domain.Target
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var (
			current domain.Target
			err     error
		)
		if id != nil {
			current, err = tx.GetTarget(ctx, *id)
			if err != nil {
				return notFoundOr(err, "target not found")
			}
			if err := s.authorizeTerritory(ctx, tx, caller, current.TerritoryID()); err != nil {
				return err
			}
		}

		next := s.applyTargetRequest(current, req)
		if !next.IsInternal && next.TerritoryID() == nil {
			return apperr.Validation("address with territory is required for non-internal targets")
		}

		var owner *uuid.UUID
		if tid := next.TerritoryID(); tid != nil {
			territory, err := tx.GetTerritory(ctx, *tid)
			if err != nil {
				return notFoundOr(err, "territory not found")
			}
			if err := s.authorizeTerritory(ctx, tx, caller, tid); err != nil {
				return err
			}
			owner = territory.CurrentOwnerID
		}
		next.Status = nextStatus(current, next, id == nil, owner)
		if next.Status != domain.StatusVisitedIntent {
			next.VisitSessionID = nil
		}
		if !caller.Admin {
			agentID := caller.UserID
			next.LegacyOwnerID = &agentID
		}

		if id == nil {
			next.ID = domain.NewID()
			next.CreatedAt = s.now().UTC()
			err = tx.InsertTarget(ctx, next)
		} else {
			err = tx.UpdateTarget(ctx, next)
		}
		if err != nil {
			return notFoundOr(err, "territory not found")
		}

		if _, _, err := s.evaluate(ctx, tx, next); err != nil {
			return err
		}
		saved, err = tx.GetTarget(ctx, next.ID)
		return err
	})
	if err != nil {
		return domain.Target{}, fail(opUpsertTarget, err, "target not found")
	}
	return saved, nil
}

// applyTargetRequest copies the normalized request onto base.
func (s *Service) applyTargetRequest(base domain.Target, req transport.UpsertTargetRequest) domain.Target {
	next := base
	next.Name = sanitize.Name(req.Name)
	next.NameKey = domain.NameKey(next.Name)
	next.ContactNumber = s.phone.NormalizeE164(req.ContactNumber)
	next.Specialization = sanitize.Text(req.Specialization)
	next.Qualification = sanitize.Text(req.Qualification)
	next.Email = strings.ToLower(strings.TrimSpace(req.Email))
	next.Remarks = sanitize.Text(req.Remarks)
	next.IsInternal = req.IsInternal
	if req.ProofObjectKey != nil {
		key := strings.TrimSpace(*req.ProofObjectKey)
		if key == "" {
			next.ProofObjectKey = nil
		} else {
			next.ProofObjectKey = &key
		}
	}

	if req.Address == nil {
		next.Address = nil
		return next
	}
	addr := domain.Address{ID: domain.NewID()}
	if base.Address != nil {
		addr.ID = base.Address.ID
	}
	if req.Address.TerritoryID != nil {
		tid := *req.Address.TerritoryID
		addr.TerritoryID = &tid
	}
	addr.Street = sanitize.Text(req.Address.Street)
	addr.Landmark = sanitize.Text(req.Address.Landmark)
	addr.PostalCode = strings.ToUpper(strings.TrimSpace(req.Address.PostalCode))
	next.Address = &addr
	return next
}

// nextStatus derives the workflow status after a write. Internal records are
// always internal; a record leaving internal, or a new one, starts assigned
// when its territory has an owner and pending otherwise. Other updates keep
// the current status.
func nextStatus(current, next domain.Target, creating bool, owner *uuid.UUID) domain.TargetStatus {
	if next.IsInternal {
		return domain.StatusInternal
	}
	if creating || current.Status == domain.StatusInternal || current.TerritoryID() == nil ||
		*current.TerritoryID() != *next.TerritoryID() {
		if owner != nil {
			return domain.StatusAssigned
		}
		return domain.StatusPending
	}
	return current.Status
}

// authorizeTerritory lets admins through and requires agents to own the
// territory.
func (s *Service) authorizeTerritory(ctx context.Context, r repository.Reader, caller Caller, territoryID *uuid.UUID) error {
	if caller.Admin {
		return nil
	}
	if territoryID == nil {
		return apperr.OwnershipMismatch("territory mismatch")
	}
	territory, err := r.GetTerritory(ctx, *territoryID)
	if err != nil {
		return notFoundOr(err, "territory not found")
	}
	if territory.CurrentOwnerID == nil || *territory.CurrentOwnerID != caller.UserID {
		return apperr.OwnershipMismatch("territory mismatch")
	}
	return nil
}

func (s *Service) verifyProof(ctx context.Context, key *string) error {
	if key == nil || strings.TrimSpace(*key) == "" || s.storage == nil {
		return nil
	}
	exists, err := s.storage.ObjectExists(ctx, s.proofBucket, strings.TrimSpace(*key))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to verify proof attachment", err).WithOp(opUpsertTarget)
	}
	if !exists {
		return apperr.Validation("proof attachment has not been uploaded").WithOp(opUpsertTarget)
	}
	return nil
}

// evaluate re-derives the visit state of t for the latest assignment of its
// territory's owner, creating the status row when missing. It does nothing
// for internal targets, superseded records and unowned territories.
func (s *Service) evaluate(ctx context.Context, tx repository.Tx, t domain.Target) (*domain.VisitStatus, *domain.Assignment, error) {
	tid := t.TerritoryID()
	if t.IsInternal || tid == nil {
		return nil, nil, nil
	}
	canonical, err := s.isCanonical(ctx, tx, t)
	if err != nil || !canonical {
		return nil, nil, err
	}
	territory, err := tx.GetTerritory(ctx, *tid)
	if err != nil {
		return nil, nil, err
	}
	if territory.CurrentOwnerID == nil {
		return nil, nil, nil
	}
	latest, err := tx.LatestAssignmentsForAgent(ctx, *territory.CurrentOwnerID, []uuid.UUID{territory.ID})
	if err != nil {
		return nil, nil, err
	}
	if len(latest) == 0 {
		return nil, nil, nil
	}
	assignment := latest[0]

	row, err := tx.EnsureVisitStatus(ctx, assignment.ID, t.ID)
	if err != nil {
		return nil, nil, err
	}
	next, changed := domain.EvaluateVisit(t, row, s.now().UTC())
	if changed {
		if err := tx.UpdateVisitState(ctx, next); err != nil {
			return nil, nil, err
		}
	}
	if missing := domain.MissingVisitFields(t); len(missing) > 0 && t.Status == domain.StatusVisitedIntent {
		s.log.Debug("visit data incomplete", "target_id", t.ID, "assignment_id", assignment.ID, "missing", missing)
	}
	return &next, &assignment, nil
}

// MarkVisited records that the calling agent visited the target within one of
// their ongoing sessions. The visit counts only when the target data is
// complete; otherwise the missing fields are returned and the status row
// stays unvisited.
func (s *Service) MarkVisited(ctx context.Context, agentID, targetID, sessionID uuid.UUID) (VisitResult, error) {
	var (
		result     VisitResult
		assignment *domain.Assignment
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		session, err := tx.GetVisitSession(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, "visit session not found")
		}
		if session.AgentID != agentID {
			return apperr.OwnershipMismatch("session not owned by caller")
		}
		if session.Status != domain.SessionOngoing {
			return apperr.InvalidState("visit session already completed")
		}

		t, err := tx.GetTarget(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "target not found")
		}
		if t.IsInternal {
			return apperr.Validation("internal targets cannot be visited")
		}
		if err := s.authorizeTerritory(ctx, tx, Caller{UserID: agentID}, t.TerritoryID()); err != nil {
			return err
		}
		canonical, err := s.isCanonical(ctx, tx, t)
		if err != nil {
			return err
		}
		if !canonical {
			return apperr.Validation("target has been superseded by a newer record")
		}

		if err := tx.SetTargetVisitIntent(ctx, t.ID, session.ID, agentID); err != nil {
			return err
		}
		if t, err = tx.GetTarget(ctx, t.ID); err != nil {
			return err
		}
		row, a, err := s.evaluate(ctx, tx, t)
		if err != nil {
			return err
		}
		assignment = a

		result = VisitResult{
			Target:        t,
			Visited:       row != nil && row.IsVisited,
			Status:        row,
			MissingFields: domain.MissingVisitFields(t),
		}
		if result.MissingFields == nil {
			result.MissingFields = []string{}
		}
		return nil
	})
	if err != nil {
		return VisitResult{}, fail(opMarkVisited, err, "target not found")
	}

	if result.Visited && assignment != nil && result.Status.VisitedAt != nil {
		s.publish(ctx, events.TargetVisited{
			BaseEvent:    events.NewBaseEventAt(s.now().UTC()),
			TargetID:     targetID,
			AssignmentID: assignment.ID,
			AgentID:      agentID,
			SessionID:    sessionID,
			VisitedAt:    *result.Status.VisitedAt,
		})
	}
	return result, nil
}

// TargetHistory returns every record sharing the normalized name, newest
// first, internal ones included.
func (s *Service) TargetHistory(ctx context.Context, name string) ([]domain.Target, error) {
	key := domain.NameKey(name)
	if key == "" {
		return nil, apperr.Validation("name is required").WithOp(opTargetHistory)
	}
	var rows []domain.Target
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		var err error
		rows, err = r.ListTargetsByNameKeys(ctx, []string{key})
		return err
	})
	if err != nil {
		return nil, fail(opTargetHistory, err, "target not found")
	}
	domain.SortNewestFirst(rows)
	return rows, nil
}

// MasterList returns one canonical non-internal record per name across all
// territories, newest first.
func (s *Service) MasterList(ctx context.Context) ([]domain.Target, error) {
	var rows []domain.Target
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		var err error
		rows, err = r.ListAllTargets(ctx)
		return err
	})
	if err != nil {
		return nil, fail(opMasterList, err, "target not found")
	}
	return domain.NewResolver(domain.ScopeGlobal).Canonical(domain.ExcludeInternal(rows)), nil
}

// ProofUploadURL issues a presigned upload URL for a proof-of-visit
// attachment of the target. The returned key is then submitted through
// UpsertTarget.
func (s *Service) ProofUploadURL(ctx context.Context, caller Caller, targetID uuid.UUID, req transport.ProofUploadRequest) (*storage.PresignedURL, error) {
	if s.storage == nil {
		return nil, apperr.Internal("attachment storage is not configured").WithOp(opProofUpload)
	}
	if err := storage.ValidateContentType(req.ContentType); err != nil {
		return nil, apperr.Validation(err.Error()).WithOp(opProofUpload)
	}
	if req.SizeBytes <= 0 {
		return nil, apperr.Validation("file size must be greater than 0").WithOp(opProofUpload)
	}

	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		t, err := r.GetTarget(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "target not found")
		}
		return s.authorizeTerritory(ctx, r, caller, t.TerritoryID())
	})
	if err != nil {
		return nil, fail(opProofUpload, err, "target not found")
	}

	url, err := s.storage.GenerateUploadURL(ctx, s.proofBucket, proofFolderPrefix+targetID.String(), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "could not issue upload url", err).WithOp(opProofUpload)
	}
	return url, nil
}

// ProofDownloadURL issues a short-lived download URL for the target's
// stored proof-of-visit attachment.
func (s *Service) ProofDownloadURL(ctx context.Context, caller Caller, targetID uuid.UUID) (*storage.PresignedURL, error) {
	if s.storage == nil {
		return nil, apperr.Internal("attachment storage is not configured").WithOp(opProofDownload)
	}

	var key string
	err := s.store.ReadTx(ctx, func(r repository.Reader) error {
		t, err := r.GetTarget(ctx, targetID)
		if err != nil {
			return notFoundOr(err, "target not found")
		}
		if err := s.authorizeTerritory(ctx, r, caller, t.TerritoryID()); err != nil {
			return err
		}
		if t.ProofObjectKey == nil {
			return apperr.NotFound("no proof attachment for target")
		}
		key = *t.ProofObjectKey
		return nil
	})
	if err != nil {
		return nil, fail(opProofDownload, err, "target not found")
	}

	url, err := s.storage.GenerateDownloadURL(ctx, s.proofBucket, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not issue download url", err).WithOp(opProofDownload)
	}
	return url, nil
}
