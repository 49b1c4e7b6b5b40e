// Package domain holds the territory engine's entities and the pure rules that
// operate on them: target identity resolution, visit completeness, visibility
// filtering and the consistency checks.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TargetStatus is the workflow state of a target record.
type TargetStatus string

const (
	StatusPending       TargetStatus = "pending"
	StatusAssigned      TargetStatus = "assigned"
	StatusVisitedIntent TargetStatus = "visited_intent"
	StatusInternal      TargetStatus = "internal"
)

// Valid reports whether s is a known status.
func (s TargetStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusVisitedIntent, StatusInternal:
		return true
	}
	return false
}

// SessionStatus is the state of a visit session.
type SessionStatus string

const (
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
)

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

type Agent struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

// EligibleForAssignment reports whether the agent may be bound to a territory.
func (a Agent) EligibleForAssignment() bool {
	return a.IsActive && a.Role == RoleAgent
}

// Territory is a geographic coverage unit. CurrentOwnerID is derived from the
// assignment history and written only by the assignment lifecycle.
type Territory struct {
	ID             uuid.UUID
	Name           string
	City           string
	Region         string
	CurrentOwnerID *uuid.UUID
	CreatedAt      time.Time
}

type Address struct {
	ID          uuid.UUID
	TerritoryID *uuid.UUID
	Street      string
	Landmark    string
	PostalCode  string
}

// Assignment binds an agent to a territory at a point in time. Rows are
// append-only history; repeats for the same pair represent renewals.
type Assignment struct {
	ID          uuid.UUID
	TerritoryID uuid.UUID
	AgentID     uuid.UUID
	Notes       string
	CreatedAt   time.Time
}

// Target is a single target record. Several records may share a normalized
// name; see Resolver for how the canonical one is chosen.
type Target struct {
	ID             uuid.UUID
	Name           string
	NameKey        string
	ContactNumber  string
	Specialization string
	Qualification  string
	Email          string
	Remarks        string
	CreatedAt      time.Time
	Address        *Address
	Status         TargetStatus
	IsInternal     bool
	VisitSessionID *uuid.UUID
	ProofObjectKey *string
	// LegacyOwnerID mirrors the last agent that worked the record. It is not
	// consulted for ownership decisions.
	LegacyOwnerID *uuid.UUID
}

// TerritoryID returns the territory the target resolves to through its address.
func (t Target) TerritoryID() *uuid.UUID {
	if t.Address == nil {
		return nil
	}
	return t.Address.TerritoryID
}

// InTerritory reports whether the target resolves to territoryID.
func (t Target) InTerritory(territoryID uuid.UUID) bool {
	tid := t.TerritoryID()
	return tid != nil && *tid == territoryID
}

// VisitStatus is the per-assignment ledger row for one target.
type VisitStatus struct {
	ID             uuid.UUID
	AssignmentID   uuid.UUID
	TargetID       uuid.UUID
	IsActive       bool
	IsVisited      bool
	VisitedAt      *time.Time
	VisitSessionID *uuid.UUID
}

// Hidden reports whether the row removes its target from the agent's list.
func (s VisitStatus) Hidden() bool {
	return !s.IsActive || s.IsVisited
}

type VisitSession struct {
	ID        uuid.UUID
	AgentID   uuid.UUID
	Status    SessionStatus
	StartedAt time.Time
	EndedAt   *time.Time
}

// NewID returns a time-ordered identifier so id order follows creation order
// when timestamps tie.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
