package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateAssignmentRequest struct {
	TerritoryID uuid.UUID `json:"territoryId" validate:"required"`
	AgentID     uuid.UUID `json:"agentId" validate:"required"`
	Notes       string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type AddressRequest struct {
	TerritoryID *uuid.UUID `json:"territoryId,omitempty"`
	Street      string     `json:"street,omitempty" validate:"omitempty,max=300"`
	Landmark    string     `json:"landmark,omitempty" validate:"omitempty,max=200"`
	PostalCode  string     `json:"postalCode,omitempty" validate:"omitempty,max=20"`
}

// UpsertTargetRequest is used for both create and full update.
type UpsertTargetRequest struct {
	Name           string          `json:"name" validate:"required,notblank,max=200"`
	ContactNumber  string          `json:"contactNumber,omitempty" validate:"omitempty,max=50"`
	Specialization string          `json:"specialization,omitempty" validate:"omitempty,max=200"`
	Qualification  string          `json:"qualification,omitempty" validate:"omitempty,max=200"`
	Email          string          `json:"email,omitempty" validate:"omitempty,email"`
	Remarks        string          `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	IsInternal     bool            `json:"isInternal"`
	Address        *AddressRequest `json:"address,omitempty"`
	ProofObjectKey *string         `json:"proofObjectKey,omitempty" validate:"omitempty,max=500"`
}

type MarkVisitedRequest struct {
	SessionID uuid.UUID `json:"sessionId" validate:"required"`
}

type ProofUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

type AddressResponse struct {
	ID          uuid.UUID  `json:"id"`
	TerritoryID *uuid.UUID `json:"territoryId,omitempty"`
	Street      string     `json:"street,omitempty"`
	Landmark    string     `json:"landmark,omitempty"`
	PostalCode  string     `json:"postalCode,omitempty"`
}

type TargetResponse struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	ContactNumber  string           `json:"contactNumber,omitempty"`
	Specialization string           `json:"specialization,omitempty"`
	Qualification  string           `json:"qualification,omitempty"`
	Email          string           `json:"email,omitempty"`
	Remarks        string           `json:"remarks,omitempty"`
	Status         string           `json:"status"`
	IsInternal     bool             `json:"isInternal"`
	Address        *AddressResponse `json:"address,omitempty"`
	VisitSessionID *uuid.UUID       `json:"visitSessionId,omitempty"`
	ProofObjectKey *string          `json:"proofObjectKey,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type TargetListResponse struct {
	Items []TargetResponse `json:"items"`
	Total int              `json:"total"`
}

type MarkVisitedResponse struct {
	Target        TargetResponse `json:"target"`
	Visited       bool           `json:"visited"`
	VisitedAt     *time.Time     `json:"visitedAt,omitempty"`
	MissingFields []string       `json:"missingFields"`
}

type CompletionStats struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
	Visited int `json:"visited"`
}

type AssignmentResponse struct {
	ID            uuid.UUID       `json:"id"`
	TerritoryID   uuid.UUID       `json:"territoryId"`
	TerritoryName string          `json:"territoryName"`
	AgentID       uuid.UUID       `json:"agentId"`
	AgentName     string          `json:"agentName"`
	Notes         string          `json:"notes,omitempty"`
	IsCurrent     bool            `json:"isCurrent"`
	Stats         CompletionStats `json:"stats"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type AssignmentListResponse struct {
	Items []AssignmentResponse `json:"items"`
	Total int                  `json:"total"`
}

type AssignmentTargetResponse struct {
	Target    TargetResponse `json:"target"`
	IsActive  bool           `json:"isActive"`
	IsVisited bool           `json:"isVisited"`
	VisitedAt *time.Time     `json:"visitedAt,omitempty"`
}

type AssignmentDetailResponse struct {
	Assignment AssignmentResponse         `json:"assignment"`
	Targets    []AssignmentTargetResponse `json:"targets"`
}

type ToggleResponse struct {
	AssignmentID uuid.UUID `json:"assignmentId"`
	TargetID     uuid.UUID `json:"targetId"`
	IsActive     bool      `json:"isActive"`
}

type SessionResponse struct {
	ID        uuid.UUID  `json:"id"`
	AgentID   uuid.UUID  `json:"agentId"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type PresignedURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProofDownloadResponse struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
