package domain

import (
	"bytes"

	"github.com/google/uuid"
)

// LatestAssignments returns, per territory, the assignment created last.
// Ties on the timestamp are broken by id.
func LatestAssignments(assignments []Assignment) map[uuid.UUID]Assignment {
	latest := make(map[uuid.UUID]Assignment, len(assignments))
	for _, a := range assignments {
		cur, ok := latest[a.TerritoryID]
		if !ok || newerAssignment(a, cur) {
			latest[a.TerritoryID] = a
		}
	}
	return latest
}

func newerAssignment(a, b Assignment) bool {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c > 0
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

// FilterVisible removes candidates that a status row marks inactive or
// visited. Only rows belonging to the agent's current assignments may be
// passed in; candidate order is preserved.
func FilterVisible(candidates []Target, rows []VisitStatus) []Target {
	hidden := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		if row.Hidden() {
			hidden[row.TargetID] = struct{}{}
		}
	}
	out := make([]Target, 0, len(candidates))
	for _, t := range candidates {
		if _, skip := hidden[t.ID]; !skip {
			out = append(out, t)
		}
	}
	return out
}
