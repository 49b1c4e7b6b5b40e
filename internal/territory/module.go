// Package territory provides the territory assignment bounded context module.
package territory

import (
	"fmt"

	"territory_backend/internal/adapters/storage"
	"territory_backend/internal/events"
	apphttp "territory_backend/internal/http"
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/handler"
	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/service"
	"territory_backend/platform/config"
	"territory_backend/platform/logger"
	"territory_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the territory bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the territory module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.EngineConfig,
	log *logger.Logger,
) (*Module, error) {
	svc, repo, err := NewService(pool, eventBus, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}, nil
}

// NewService builds the engine service on top of PostgreSQL. Binaries without
// an HTTP surface use it directly.
func NewService(pool *pgxpool.Pool, eventBus events.Bus, cfg config.EngineConfig, log *logger.Logger) (*service.Service, *repository.Repository, error) {
	scope, err := domain.ParseScope(cfg.GetCanonicalScope())
	if err != nil {
		return nil, nil, fmt.Errorf("territory module: %w", err)
	}
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log, service.Options{
		Scope:            scope,
		PhoneRegion:      cfg.GetPhoneDefaultRegion(),
		AuditSampleLimit: cfg.GetAuditSampleLimit(),
	})
	return svc, repo, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "territory"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the PostgreSQL store, e.g. for seeding master data.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetStorage enables proof-of-visit uploads.
func (m *Module) SetStorage(storageSvc storage.StorageService, bucket string) {
	m.service.SetStorage(storageSvc, bucket)
}

// RegisterRoutes mounts territory routes on the provided router context.
func (m *Module) RegisterRoutes(groups *apphttp.RouteGroups) {
	m.handler.RegisterRoutes(groups.Agent)
	m.handler.RegisterAdminRoutes(groups.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
