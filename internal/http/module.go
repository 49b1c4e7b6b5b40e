// Package http defines what the router needs to mount the API: the wired
// application and the contract every bounded context implements.
package http

import (
	"context"

	"territory_backend/platform/config"
	"territory_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(groups *RouteGroups)
}

// RouteGroups are the groups under /api/v1. Agent and Admin already carry
// bearer authentication; Admin also requires the admin role.
type RouteGroups struct {
	Public *gin.RouterGroup
	Agent  *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// Pinger backs the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App is the wired application handed to the router by cmd/api. A nil
// Health reports ready unconditionally.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  Pinger
	Modules []Module
}
