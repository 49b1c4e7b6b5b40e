package notification

import (
	"context"
	"errors"
	"io"
	"testing"

	"territory_backend/internal/email"
	"territory_backend/internal/events"
	platformevents "territory_backend/platform/events"
	"territory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSender struct {
	to    []string
	sent  []email.AssignmentEmail
	fails error
}

func (s *testSender) SendAssignmentEmail(_ context.Context, toEmail string, data email.AssignmentEmail) error {
	if s.fails != nil {
		return s.fails
	}
	s.to = append(s.to, toEmail)
	s.sent = append(s.sent, data)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("production", io.Discard)
}

func assignmentCreated(agentEmail string) events.AssignmentCreated {
	return events.AssignmentCreated{
		BaseEvent:     events.NewBaseEvent(),
		AssignmentID:  uuid.New(),
		TerritoryID:   uuid.New(),
		TerritoryName: "Pune East",
		AgentID:       uuid.New(),
		AgentName:     "Asha",
		AgentEmail:    agentEmail,
		SeededTargets: 3,
		Notes:         "handover",
	}
}

func TestAssignmentCreatedSendsEmail(t *testing.T) {
	sender := &testSender{}
	bus := platformevents.NewInMemoryBus(testLogger())
	New(sender, testLogger()).RegisterHandlers(bus)

	require.NoError(t, bus.PublishSync(context.Background(), assignmentCreated("asha@example.com")))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, sender.to)
	assert.Equal(t, email.AssignmentEmail{AgentName: "Asha", TerritoryName: "Pune East", SeededTargets: 3, Notes: "handover"}, sender.sent[0])
}

func TestAssignmentCreatedWithoutAddressIsSkipped(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testLogger())

	require.NoError(t, m.Handle(context.Background(), assignmentCreated("")))
	assert.Empty(t, sender.sent)
}

func TestSenderFailureIsReturned(t *testing.T) {
	m := New(&testSender{fails: errors.New("smtp down")}, testLogger())
	assert.Error(t, m.Handle(context.Background(), assignmentCreated("asha@example.com")))
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testLogger())

	require.NoError(t, m.Handle(context.Background(), events.TargetVisited{BaseEvent: events.NewBaseEvent()}))
	assert.Empty(t, sender.sent)
}
