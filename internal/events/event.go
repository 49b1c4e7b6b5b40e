// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"territory_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Territory Domain Events
// =============================================================================

// AssignmentCreated is published after an assignment commits.
type AssignmentCreated struct {
	BaseEvent
	AssignmentID  uuid.UUID `json:"assignmentId"`
	TerritoryID   uuid.UUID `json:"territoryId"`
	TerritoryName string    `json:"territoryName"`
	AgentID       uuid.UUID `json:"agentId"`
	AgentName     string    `json:"agentName"`
	AgentEmail    string    `json:"agentEmail"`
	SeededTargets int       `json:"seededTargets"`
	Notes         string    `json:"notes,omitempty"`
}

func (e AssignmentCreated) EventName() string { return "territory.assignment.created" }

// AssignmentDeleted is published after an assignment is removed. NewOwnerID is
// nil when no history remains for the territory.
type AssignmentDeleted struct {
	BaseEvent
	AssignmentID uuid.UUID  `json:"assignmentId"`
	TerritoryID  uuid.UUID  `json:"territoryId"`
	AgentID      uuid.UUID  `json:"agentId"`
	NewOwnerID   *uuid.UUID `json:"newOwnerId,omitempty"`
}

func (e AssignmentDeleted) EventName() string { return "territory.assignment.deleted" }

// TargetVisited is published when a visit passes the completeness check.
type TargetVisited struct {
	BaseEvent
	TargetID     uuid.UUID `json:"targetId"`
	AssignmentID uuid.UUID `json:"assignmentId"`
	AgentID      uuid.UUID `json:"agentId"`
	SessionID    uuid.UUID `json:"sessionId"`
	VisitedAt    time.Time `json:"visitedAt"`
}

func (e TargetVisited) EventName() string { return "territory.target.visited" }
