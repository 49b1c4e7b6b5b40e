package service

import (
	"testing"

	"territory_backend/internal/territory/domain"
	"territory_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityIgnoresRowsOfOlderRenewals(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)
	west := f.territory("West")
	agent := f.agent("asha")
	rao := f.target(completeRequest("Dr. Rao", west))
	mehta := f.target(incompleteRequest("Dr. Mehta", west))

	first := f.assign(west, agent)
	_, err := f.svc.ToggleTargetActive(f.ctx, first.ID, mehta.ID)
	require.NoError(t, err)
	session, err := f.svc.StartSession(f.ctx, agent)
	require.NoError(t, err)
	res, err := f.svc.MarkVisited(f.ctx, agent, rao.ID, session.ID)
	require.NoError(t, err)
	require.True(t, res.Visited)
	assert.Empty(t, f.visibleIDs(agent))

	f.assign(west, agent)
	assert.ElementsMatch(t, []uuid.UUID{rao.ID, mehta.ID}, f.visibleIDs(agent))
}

func TestVisibilitySpansOwnedTerritories(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)
	west := f.territory("West")
	east := f.territory("East")
	north := f.territory("North")
	agent := f.agent("asha")
	other := f.agent("ravi")

	rao := f.target(incompleteRequest("Dr. Rao", west))
	khan := f.target(incompleteRequest("Dr. Khan", east))
	f.target(incompleteRequest("Dr. Singh", north))

	f.assign(west, agent)
	f.assign(east, agent)
	f.assign(north, other)

	visible, err := f.svc.ListVisibleTargets(f.ctx, agent)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	// newest first
	assert.Equal(t, khan.ID, visible[0].ID)
	assert.Equal(t, rao.ID, visible[1].ID)
}

func TestListVisibleTargetsEdgeCases(t *testing.T) {
	f := newFixture(t, domain.ScopeTerritory)
	idle := f.agent("idle")

	visible, err := f.svc.ListVisibleTargets(f.ctx, idle)
	require.NoError(t, err)
	assert.Empty(t, visible)

	_, err = f.svc.ListVisibleTargets(f.ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}
