package handler

import (
	"territory_backend/internal/territory/domain"
	"territory_backend/internal/territory/service"
	"territory_backend/internal/territory/transport"
)

func toTargetResponse(t domain.Target) transport.TargetResponse {
	resp := transport.TargetResponse{
		ID:             t.ID,
		Name:           t.Name,
		ContactNumber:  t.ContactNumber,
		Specialization: t.Specialization,
		Qualification:  t.Qualification,
		Email:          t.Email,
		Remarks:        t.Remarks,
		Status:         string(t.Status),
		IsInternal:     t.IsInternal,
		VisitSessionID: t.VisitSessionID,
		ProofObjectKey: t.ProofObjectKey,
		CreatedAt:      t.CreatedAt,
	}
	if t.Address != nil {
		resp.Address = &transport.AddressResponse{
			ID:          t.Address.ID,
			TerritoryID: t.Address.TerritoryID,
			Street:      t.Address.Street,
			Landmark:    t.Address.Landmark,
			PostalCode:  t.Address.PostalCode,
		}
	}
	return resp
}

func toTargetList(targets []domain.Target) transport.TargetListResponse {
	items := make([]transport.TargetResponse, 0, len(targets))
	for _, t := range targets {
		items = append(items, toTargetResponse(t))
	}
	return transport.TargetListResponse{Items: items, Total: len(items)}
}

func toAssignmentResponse(s service.AssignmentSummary) transport.AssignmentResponse {
	return transport.AssignmentResponse{
		ID:            s.Assignment.ID,
		TerritoryID:   s.Assignment.TerritoryID,
		TerritoryName: s.TerritoryName,
		AgentID:       s.Assignment.AgentID,
		AgentName:     s.AgentName,
		Notes:         s.Assignment.Notes,
		IsCurrent:     s.IsCurrent,
		Stats: transport.CompletionStats{
			Total:   s.Stats.Total,
			Enabled: s.Stats.Enabled,
			Visited: s.Stats.Visited,
		},
		CreatedAt: s.Assignment.CreatedAt,
	}
}

func toAssignmentDetailResponse(d service.AssignmentDetail) transport.AssignmentDetailResponse {
	targets := make([]transport.AssignmentTargetResponse, 0, len(d.Targets))
	for _, item := range d.Targets {
		targets = append(targets, transport.AssignmentTargetResponse{
			Target:    toTargetResponse(item.Target),
			IsActive:  item.IsActive,
			IsVisited: item.IsVisited,
			VisitedAt: item.VisitedAt,
		})
	}
	return transport.AssignmentDetailResponse{Assignment: toAssignmentResponse(d.Summary), Targets: targets}
}

func toMarkVisitedResponse(r service.VisitResult) transport.MarkVisitedResponse {
	resp := transport.MarkVisitedResponse{
		Target:        toTargetResponse(r.Target),
		Visited:       r.Visited,
		MissingFields: r.MissingFields,
	}
	if r.Status != nil {
		resp.VisitedAt = r.Status.VisitedAt
	}
	return resp
}

func toSessionResponse(s domain.VisitSession) transport.SessionResponse {
	return transport.SessionResponse{
		ID:        s.ID,
		AgentID:   s.AgentID,
		Status:    string(s.Status),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}
