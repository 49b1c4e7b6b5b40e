package handler

import (
	"net/http"

	"territory_backend/internal/territory/repository"
	"territory_backend/internal/territory/service"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/httpkit"
	"territory_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for the territory engine.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new territory handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the routes available to any authenticated caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/targets/visible", h.ListMyVisibleTargets)
	rg.GET("/targets/history", h.TargetHistory)
	rg.GET("/targets/master", h.MasterList)
	rg.POST("/targets", h.CreateTarget)
	rg.PUT("/targets/:id", h.UpdateTarget)
	rg.POST("/targets/:id/visit", h.MarkVisited)
	rg.POST("/targets/:id/proof-upload-url", h.ProofUploadURL)
	rg.GET("/targets/:id/proof-url", h.ProofDownloadURL)

	rg.POST("/sessions", h.StartSession)
	rg.GET("/sessions/current", h.CurrentSession)
	rg.POST("/sessions/:id/end", h.EndSession)
}

// RegisterAdminRoutes registers the admin-only routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/assignments", h.ListAssignments)
	rg.POST("/assignments", h.CreateAssignment)
	rg.GET("/assignments/:id", h.GetAssignment)
	rg.DELETE("/assignments/:id", h.DeleteAssignment)
	rg.POST("/assignments/:id/targets/:targetId/toggle", h.ToggleTarget)

	rg.GET("/agents/:id/visible-targets", h.ListAgentVisibleTargets)

	rg.POST("/audit", h.RunAudit)
	rg.GET("/audit/latest", h.LatestAudit)
}

func callerOf(identity httpkit.Identity) service.Caller {
	return service.Caller{UserID: identity.UserID(), Admin: identity.HasRole(httpkit.RoleAdmin)}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func optionalQueryID(c *gin.Context, param string) (*uuid.UUID, bool) {
	raw := c.Query(param)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, param+" must be a uuid")
		return nil, false
	}
	return &id, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// ---- assignments ----

func (h *Handler) CreateAssignment(c *gin.Context) {
	var req transport.CreateAssignmentRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.svc.CreateAssignment(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	detail, err := h.svc.GetAssignmentDetail(c.Request.Context(), created.ID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toAssignmentResponse(detail.Summary))
}

func (h *Handler) DeleteAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteAssignment(c.Request.Context(), id)) {
		return
	}
	httpkit.NoContent(c)
}

func (h *Handler) ListAssignments(c *gin.Context) {
	agentID, ok := optionalQueryID(c, "agentId")
	if !ok {
		return
	}
	territoryID, ok := optionalQueryID(c, "territoryId")
	if !ok {
		return
	}
	filter := repository.AssignmentFilter{AgentID: agentID, TerritoryID: territoryID}

	items, err := h.svc.ListAssignments(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := transport.AssignmentListResponse{Items: make([]transport.AssignmentResponse, 0, len(items)), Total: len(items)}
	for _, item := range items {
		resp.Items = append(resp.Items, toAssignmentResponse(item))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) GetAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetAssignmentDetail(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAssignmentDetailResponse(detail))
}

func (h *Handler) ToggleTarget(c *gin.Context) {
	assignmentID, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "targetId")
	if !ok {
		return
	}
	active, err := h.svc.ToggleTargetActive(c.Request.Context(), assignmentID, targetID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToggleResponse{AssignmentID: assignmentID, TargetID: targetID, IsActive: active})
}

// ---- visibility ----

func (h *Handler) ListMyVisibleTargets(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.listVisible(c, identity.UserID())
}

func (h *Handler) ListAgentVisibleTargets(c *gin.Context) {
	agentID, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.listVisible(c, agentID)
}

func (h *Handler) listVisible(c *gin.Context, agentID uuid.UUID) {
	targets, err := h.svc.ListVisibleTargets(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTargetList(targets))
}

// ---- targets ----

func (h *Handler) CreateTarget(c *gin.Context) {
	h.upsertTarget(c, nil)
}

func (h *Handler) UpdateTarget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.upsertTarget(c, &id)
}

func (h *Handler) upsertTarget(c *gin.Context, id *uuid.UUID) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.UpsertTargetRequest
	if !h.bind(c, &req) {
		return
	}

	saved, err := h.svc.UpsertTarget(c.Request.Context(), callerOf(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, toTargetResponse(saved))
}

func (h *Handler) MarkVisited(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.MarkVisitedRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.MarkVisited(c.Request.Context(), identity.UserID(), targetID, req.SessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toMarkVisitedResponse(result))
}

func (h *Handler) ProofUploadURL(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.ProofUploadRequest
	if !h.bind(c, &req) {
		return
	}

	url, err := h.svc.ProofUploadURL(c.Request.Context(), callerOf(identity), targetID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PresignedURLResponse{UploadURL: url.URL, FileKey: url.FileKey, ExpiresAt: url.ExpiresAt})
}

func (h *Handler) ProofDownloadURL(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}

	url, err := h.svc.ProofDownloadURL(c.Request.Context(), callerOf(identity), targetID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ProofDownloadResponse{DownloadURL: url.URL, ExpiresAt: url.ExpiresAt})
}

func (h *Handler) TargetHistory(c *gin.Context) {
	targets, err := h.svc.TargetHistory(c.Request.Context(), c.Query("name"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTargetList(targets))
}

func (h *Handler) MasterList(c *gin.Context) {
	targets, err := h.svc.MasterList(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTargetList(targets))
}

// ---- sessions ----

func (h *Handler) StartSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	session, err := h.svc.StartSession(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) CurrentSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	session, err := h.svc.CurrentSession(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSessionResponse(session))
}

func (h *Handler) EndSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	sessionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	session, err := h.svc.EndSession(c.Request.Context(), identity.UserID(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSessionResponse(session))
}

// ---- audit ----

func (h *Handler) RunAudit(c *gin.Context) {
	report, err := h.svc.RunAudit(c.Request.Context(), service.AuditTriggerManual)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) LatestAudit(c *gin.Context) {
	report, err := h.svc.LatestAudit(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}
