package domain

import (
	"strings"
	"time"
)

// Fields required before a visit can count.
const (
	FieldContactNumber  = "contact_number"
	FieldSpecialization = "specialization"
	FieldQualification  = "qualification"
	FieldPostalCode     = "postal_code"
	FieldProofOfVisit   = "proof_of_visit"
)

// MissingVisitFields lists the required fields t lacks, in a stable order.
func MissingVisitFields(t Target) []string {
	var missing []string
	if blank(t.ContactNumber) {
		missing = append(missing, FieldContactNumber)
	}
	if blank(t.Specialization) {
		missing = append(missing, FieldSpecialization)
	}
	if blank(t.Qualification) {
		missing = append(missing, FieldQualification)
	}
	if t.Address == nil || blank(t.Address.PostalCode) {
		missing = append(missing, FieldPostalCode)
	}
	if t.ProofObjectKey == nil || blank(*t.ProofObjectKey) {
		missing = append(missing, FieldProofOfVisit)
	}
	return missing
}

// IsVisitComplete reports whether t holds enough data to count as visited.
func IsVisitComplete(t Target) bool {
	return len(MissingVisitFields(t)) == 0
}

// EvaluateVisit derives the visited state of a status row from the current
// content of its target. It returns the updated row and whether anything
// changed.
//
// A target in VisitedIntent with a session and complete data is visited; the
// original timestamp survives re-evaluation within the same session. An
// incomplete target is never visited. Complete targets outside VisitedIntent
// keep whatever the row already says.
func EvaluateVisit(t Target, row VisitStatus, now time.Time) (VisitStatus, bool) {
	next := row
	complete := IsVisitComplete(t)

	switch {
	case complete && t.Status == StatusVisitedIntent && t.VisitSessionID != nil:
		sameSession := row.VisitSessionID != nil && *row.VisitSessionID == *t.VisitSessionID
		next.IsVisited = true
		sessionID := *t.VisitSessionID
		next.VisitSessionID = &sessionID
		if !(row.IsVisited && sameSession && row.VisitedAt != nil) {
			stamp := now
			next.VisitedAt = &stamp
		}
	case !complete:
		next.IsVisited = false
		next.VisitedAt = nil
		next.VisitSessionID = nil
	}

	return next, !sameVisitState(row, next)
}

func sameVisitState(a, b VisitStatus) bool {
	if a.IsVisited != b.IsVisited {
		return false
	}
	if (a.VisitedAt == nil) != (b.VisitedAt == nil) {
		return false
	}
	if a.VisitedAt != nil && !a.VisitedAt.Equal(*b.VisitedAt) {
		return false
	}
	if (a.VisitSessionID == nil) != (b.VisitSessionID == nil) {
		return false
	}
	return a.VisitSessionID == nil || *a.VisitSessionID == *b.VisitSessionID
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
