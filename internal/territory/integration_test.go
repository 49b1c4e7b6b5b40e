//go:build integration

package territory

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/service"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/config"
	"territory_backend/platform/db"
	"territory_backend/platform/events"
	"territory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrationConfig struct{ url string }

func (c integrationConfig) GetDatabaseURL() string        { return c.url }
func (c integrationConfig) GetCanonicalScope() string     { return "territory" }
func (c integrationConfig) GetPhoneDefaultRegion() string { return "IN" }
func (c integrationConfig) GetAuditSampleLimit() int      { return 10 }

var _ config.EngineConfig = integrationConfig{}

func TestAssignmentLifecycleOnPostgres(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := integrationConfig{url: url}
	pool, err := db.NewPool(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.RunMigrations(ctx, pool))

	log := logger.NewWithWriter("production", io.Discard)
	bus := events.NewInMemoryBus(log)
	svc, repo, err := NewService(pool, bus, cfg, log)
	require.NoError(t, err)

	suffix := uuid.NewString()[:8]
	agent := domain.Agent{ID: domain.NewID(), Name: "Agent " + suffix, Email: suffix + "@example.com", Role: domain.RoleAgent, IsActive: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.InsertAgent(ctx, agent))
	territory := domain.Territory{ID: domain.NewID(), Name: "Territory " + suffix, City: "Pune", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.InsertTerritory(ctx, territory))

	admin := service.Caller{UserID: uuid.New(), Admin: true}
	tid := territory.ID
	proof := "targets/proof/visit.jpg"
	complete, err := svc.UpsertTarget(ctx, admin, nil, transport.UpsertTargetRequest{
		Name:           "Dr. Complete",
		ContactNumber:  "098765 43210",
		Specialization: "Cardiology",
		Qualification:  "MD",
		Address:        &transport.AddressRequest{TerritoryID: &tid, Street: "MG Road", PostalCode: "411001"},
		ProofObjectKey: &proof,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, complete.Status)

	assignment, err := svc.CreateAssignment(ctx, transport.CreateAssignmentRequest{TerritoryID: territory.ID, AgentID: agent.ID})
	require.NoError(t, err)

	visible, err := svc.ListVisibleTargets(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, complete.ID, visible[0].ID)
	assert.Equal(t, domain.StatusAssigned, visible[0].Status)

	session, err := svc.StartSession(ctx, agent.ID)
	require.NoError(t, err)
	result, err := svc.MarkVisited(ctx, agent.ID, complete.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, result.Visited)

	_, err = svc.EndSession(ctx, agent.ID, session.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAssignment(ctx, assignment.ID))
	visible, err = svc.ListVisibleTargets(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)

	bus.Wait()
}
