// Package notification sends notifications in response to domain events.
// Domain modules publish events and never talk to email providers directly.
package notification

import (
	"context"

	"territory_backend/internal/email"
	"territory_backend/internal/events"
	"territory_backend/platform/logger"
)

// Module routes territory events to the email sender.
type Module struct {
	sender email.Sender
	log    *logger.Logger
}

func New(sender email.Sender, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, log: log}
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AssignmentCreated{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AssignmentCreated:
		return m.handleAssignmentCreated(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleAssignmentCreated(ctx context.Context, e events.AssignmentCreated) error {
	if e.AgentEmail == "" {
		m.log.Debug("assignment email skipped, agent has no address", "assignmentId", e.AssignmentID, "agentId", e.AgentID)
		return nil
	}

	err := m.sender.SendAssignmentEmail(ctx, e.AgentEmail, email.AssignmentEmail{
		AgentName:     e.AgentName,
		TerritoryName: e.TerritoryName,
		SeededTargets: e.SeededTargets,
		Notes:         e.Notes,
	})
	if err != nil {
		m.log.Error("failed to send assignment email",
			"assignmentId", e.AssignmentID,
			"agentId", e.AgentID,
			"error", err,
		)
		return err
	}
	m.log.Info("assignment email sent", "assignmentId", e.AssignmentID, "agentId", e.AgentID)
	return nil
}
