package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) (*MemoryStore, domain.Territory, domain.Agent, domain.Target) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	agent := domain.Agent{ID: domain.NewID(), Name: "Agent", Role: domain.RoleAgent, IsActive: true}
	territory := domain.Territory{ID: domain.NewID(), Name: "West"}
	require.NoError(t, store.InsertAgent(ctx, agent))
	require.NoError(t, store.InsertTerritory(ctx, territory))

	tid := territory.ID
	target := domain.Target{
		ID:        domain.NewID(),
		Name:      "Dr. A",
		NameKey:   domain.NameKey("Dr. A"),
		CreatedAt: time.Now(),
		Status:    domain.StatusPending,
		Address:   &domain.Address{ID: domain.NewID(), TerritoryID: &tid, PostalCode: "560001"},
	}
	require.NoError(t, store.InTx(ctx, func(tx Tx) error { return tx.InsertTarget(ctx, target) }))
	return store, territory, agent, target
}

func TestMemoryStoreRollsBackFailedTx(t *testing.T) {
	ctx := context.Background()
	store, territory, agent, _ := seedMemory(t)
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx Tx) error {
		a := domain.Assignment{ID: domain.NewID(), TerritoryID: territory.ID, AgentID: agent.ID, CreatedAt: time.Now()}
		require.NoError(t, tx.InsertAssignment(ctx, a))
		require.NoError(t, tx.SetTerritoryOwner(ctx, territory.ID, &agent.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.ReadTx(ctx, func(r Reader) error {
		got, err := r.GetTerritory(ctx, territory.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CurrentOwnerID)
		all, err := r.ListAssignments(ctx, AssignmentFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	}))
}

func TestMemoryStoreStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	store, territory, agent, target := seedMemory(t)
	a := domain.Assignment{ID: domain.NewID(), TerritoryID: territory.ID, AgentID: agent.ID, CreatedAt: time.Now()}

	require.NoError(t, store.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertAssignment(ctx, a))
		first, err := tx.EnsureVisitStatus(ctx, a.ID, target.ID)
		require.NoError(t, err)
		second, err := tx.EnsureVisitStatus(ctx, a.ID, target.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.IsActive)

		active, err := tx.ToggleVisitStatus(ctx, a.ID, target.ID)
		require.NoError(t, err)
		assert.False(t, active)
		return nil
	}))

	require.NoError(t, store.InTx(ctx, func(tx Tx) error {
		return tx.DeleteAssignment(ctx, a.ID)
	}))

	require.NoError(t, store.ReadTx(ctx, func(r Reader) error {
		counts, err := r.CountVisitStatuses(ctx)
		require.NoError(t, err)
		assert.Empty(t, counts, "status rows cascade with their assignment")
		return nil
	}))
}

func TestMemoryStoreSingleOngoingSession(t *testing.T) {
	ctx := context.Background()
	store, _, agent, _ := seedMemory(t)

	start := func() error {
		return store.InTx(ctx, func(tx Tx) error {
			return tx.InsertVisitSession(ctx, domain.VisitSession{
				ID: domain.NewID(), AgentID: agent.ID, Status: domain.SessionOngoing, StartedAt: time.Now(),
			})
		})
	}
	require.NoError(t, start())
	assert.ErrorIs(t, start(), ErrOngoingSession)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store, _, _, target := seedMemory(t)

	require.NoError(t, store.ReadTx(ctx, func(r Reader) error {
		got, err := r.GetTarget(ctx, target.ID)
		require.NoError(t, err)
		got.Address.PostalCode = ""
		return nil
	}))
	require.NoError(t, store.ReadTx(ctx, func(r Reader) error {
		got, err := r.GetTarget(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, "560001", got.Address.PostalCode)
		return nil
	}))
}

func TestMemoryStoreDuplicateTerritoryName(t *testing.T) {
	ctx := context.Background()
	store, _, _, _ := seedMemory(t)
	err := store.InsertTerritory(ctx, domain.Territory{ID: domain.NewID(), Name: "West"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}
