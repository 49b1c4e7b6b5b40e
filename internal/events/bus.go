// Package events re-exports the platform event bus so modules import events
// from one place while the implementation lives in platform/events.
package events

import (
	platformevents "territory_backend/platform/events"
	"territory_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
