package repository

import (
	"context"
	"errors"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrOngoingSession is returned when an agent already has an ongoing visit session.
	ErrOngoingSession = errors.New("agent already has an ongoing session")
	// ErrDuplicateName is returned when a territory name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// DirectoryReader reads agents and territories.
type DirectoryReader interface {
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
	GetTerritory(ctx context.Context, id uuid.UUID) (domain.Territory, error)
	ListTerritories(ctx context.Context) ([]domain.Territory, error)
	ListTerritoriesOwnedBy(ctx context.Context, agentID uuid.UUID) ([]domain.Territory, error)
}

// AssignmentReader reads the assignment history. Lists are newest first.
type AssignmentReader interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (domain.Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error)
	LatestAssignment(ctx context.Context, territoryID uuid.UUID) (domain.Assignment, error)
	LatestAssignmentsForAgent(ctx context.Context, agentID uuid.UUID, territoryIDs []uuid.UUID) ([]domain.Assignment, error)
}

// TargetReader reads target records together with their address.
type TargetReader interface {
	GetTarget(ctx context.Context, id uuid.UUID) (domain.Target, error)
	ListTargetsByTerritories(ctx context.Context, territoryIDs []uuid.UUID) ([]domain.Target, error)
	ListTargetsByNameKeys(ctx context.Context, keys []string) ([]domain.Target, error)
	ListAllTargets(ctx context.Context) ([]domain.Target, error)
}

// VisitReader reads the visit status ledger and sessions.
type VisitReader interface {
	ListVisitStatuses(ctx context.Context, assignmentIDs []uuid.UUID) ([]domain.VisitStatus, error)
	CountVisitStatuses(ctx context.Context) (map[uuid.UUID]int, error)
	GetVisitSession(ctx context.Context, id uuid.UUID) (domain.VisitSession, error)
	GetOngoingSession(ctx context.Context, agentID uuid.UUID) (domain.VisitSession, error)
}

// Reader is every read the engine performs.
type Reader interface {
	DirectoryReader
	AssignmentReader
	TargetReader
	VisitReader
}

// AssignmentWriter mutates territories and the assignment history.
type AssignmentWriter interface {
	// LockTerritory reads the territory and holds a row lock until the
	// transaction ends.
	LockTerritory(ctx context.Context, id uuid.UUID) (domain.Territory, error)
	SetTerritoryOwner(ctx context.Context, territoryID uuid.UUID, ownerID *uuid.UUID) error
	InsertAssignment(ctx context.Context, a domain.Assignment) error
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
}

// TargetWriter mutates target records and addresses.
type TargetWriter interface {
	InsertTarget(ctx context.Context, t domain.Target) error
	UpdateTarget(ctx context.Context, t domain.Target) error
	// MarkTargetsAssigned moves the given targets to assigned, leaving
	// internal ones alone and dropping the session link of visited_intent ones.
	MarkTargetsAssigned(ctx context.Context, targetIDs []uuid.UUID) error
	// ResetAgentTargets clears the legacy owner of the agent's targets in the
	// territory and moves them back to pending.
	ResetAgentTargets(ctx context.Context, territoryID, agentID uuid.UUID) error
	// ResetTerritoryTargets moves every non-internal target of the territory
	// back to pending.
	ResetTerritoryTargets(ctx context.Context, territoryID uuid.UUID) error
	SetTargetVisitIntent(ctx context.Context, targetID, sessionID, agentID uuid.UUID) error
}

// VisitWriter mutates the visit status ledger and sessions.
type VisitWriter interface {
	// EnsureVisitStatus returns the (assignment, target) row, creating an
	// active unvisited one when absent.
	EnsureVisitStatus(ctx context.Context, assignmentID, targetID uuid.UUID) (domain.VisitStatus, error)
	UpdateVisitState(ctx context.Context, row domain.VisitStatus) error
	// ToggleVisitStatus flips is_active and returns the stored value.
	ToggleVisitStatus(ctx context.Context, assignmentID, targetID uuid.UUID) (bool, error)
	InsertVisitSession(ctx context.Context, s domain.VisitSession) error
	CompleteVisitSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error
}

// Tx is a unit of work spanning reads and writes.
type Tx interface {
	Reader
	AssignmentWriter
	TargetWriter
	VisitWriter
}

// Store opens units of work. ReadTx gives a consistent snapshot for
// multi-query reads.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ReadTx(ctx context.Context, fn func(r Reader) error) error
}

// DirectoryWriter seeds master data. It is used by tooling and tests, not by
// the engine's operations.
type DirectoryWriter interface {
	InsertAgent(ctx context.Context, a domain.Agent) error
	InsertTerritory(ctx context.Context, t domain.Territory) error
}

// AssignmentFilter narrows ListAssignments. Nil fields match everything.
type AssignmentFilter struct {
	AgentID     *uuid.UUID
	TerritoryID *uuid.UUID
}
