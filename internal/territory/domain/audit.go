package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AuditDataset is a read-only snapshot the consistency checks run against.
type AuditDataset struct {
	Territories  []Territory
	Assignments  []Assignment
	Targets      []Target
	StatusCounts map[uuid.UUID]int
}

// Check is one consistency rule. Run returns every offending identifier in a
// deterministic order; truncation to a sample happens in the caller.
type Check struct {
	Name        string
	Description string
	Run         func(AuditDataset, Resolver) []string
}

// Checks lists the consistency rules in report order.
var Checks = []Check{
	{
		Name:        "targets_missing_address",
		Description: "non-internal targets without an address resolving to a territory",
		Run:         checkMissingAddress,
	},
	{
		Name:        "visited_intent_without_session",
		Description: "targets in visited_intent with no visit session",
		Run:         checkVisitedIntentWithoutSession,
	},
	{
		Name:        "session_without_visited_intent",
		Description: "session-linked targets not in visited_intent",
		Run:         checkSessionWithoutVisitedIntent,
	},
	{
		Name:        "owner_without_assignment",
		Description: "territories whose owner has no assignment to that territory",
		Run:         checkOwnerWithoutAssignment,
	},
	{
		Name:        "assignment_seeding_mismatch",
		Description: "assignments whose status row count differs from the territory's canonical target count",
		Run:         checkSeedingMismatch,
	},
	{
		Name:        "duplicate_names_in_territory",
		Description: "names appearing on more than one target record within a territory",
		Run:         checkDuplicateNames,
	},
	{
		Name:        "owner_not_latest_assignment",
		Description: "territories whose owner differs from the agent of the latest assignment",
		Run:         checkOwnerNotLatest,
	},
}

func checkMissingAddress(ds AuditDataset, _ Resolver) []string {
	var ids []string
	for _, t := range ds.Targets {
		if !t.IsInternal && t.TerritoryID() == nil {
			ids = append(ids, t.ID.String())
		}
	}
	return ids
}

func checkVisitedIntentWithoutSession(ds AuditDataset, _ Resolver) []string {
	var ids []string
	for _, t := range ds.Targets {
		if t.Status == StatusVisitedIntent && t.VisitSessionID == nil {
			ids = append(ids, t.ID.String())
		}
	}
	return ids
}

func checkSessionWithoutVisitedIntent(ds AuditDataset, _ Resolver) []string {
	var ids []string
	for _, t := range ds.Targets {
		if t.VisitSessionID != nil && t.Status != StatusVisitedIntent {
			ids = append(ids, t.ID.String())
		}
	}
	return ids
}

func checkOwnerWithoutAssignment(ds AuditDataset, _ Resolver) []string {
	bound := make(map[[2]uuid.UUID]struct{}, len(ds.Assignments))
	for _, a := range ds.Assignments {
		bound[[2]uuid.UUID{a.TerritoryID, a.AgentID}] = struct{}{}
	}
	var ids []string
	for _, tr := range ds.Territories {
		if tr.CurrentOwnerID == nil {
			continue
		}
		if _, ok := bound[[2]uuid.UUID{tr.ID, *tr.CurrentOwnerID}]; !ok {
			ids = append(ids, tr.ID.String())
		}
	}
	return ids
}

func checkSeedingMismatch(ds AuditDataset, r Resolver) []string {
	expected := make(map[uuid.UUID]int)
	for _, t := range r.Canonical(ExcludeInternal(ds.Targets)) {
		if tid := t.TerritoryID(); tid != nil {
			expected[*tid]++
		}
	}
	var ids []string
	for _, a := range ds.Assignments {
		if ds.StatusCounts[a.ID] != expected[a.TerritoryID] {
			ids = append(ids, a.ID.String())
		}
	}
	return ids
}

func checkDuplicateNames(ds AuditDataset, _ Resolver) []string {
	type group struct {
		territory uuid.UUID
		key       string
	}
	counts := make(map[group]int)
	names := make(map[group]string)
	for _, t := range ds.Targets {
		tid := t.TerritoryID()
		if tid == nil {
			continue
		}
		key := t.NameKey
		if key == "" {
			key = NameKey(t.Name)
		}
		g := group{territory: *tid, key: key}
		counts[g]++
		if _, ok := names[g]; !ok {
			names[g] = t.Name
		}
	}
	var out []string
	for g, n := range counts {
		if n > 1 {
			out = append(out, g.territory.String()+":"+names[g])
		}
	}
	sort.Strings(out)
	return out
}

func checkOwnerNotLatest(ds AuditDataset, _ Resolver) []string {
	latest := LatestAssignments(ds.Assignments)
	var ids []string
	for _, tr := range ds.Territories {
		a, ok := latest[tr.ID]
		if !ok {
			continue
		}
		if tr.CurrentOwnerID == nil || *tr.CurrentOwnerID != a.AgentID {
			ids = append(ids, tr.ID.String())
		}
	}
	return ids
}

// CheckResult is the outcome of one check in a report.
type CheckResult struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Count       int      `json:"count"`
	Sample      []string `json:"sample"`
}

// AuditReport is one run of every check over a single snapshot.
type AuditReport struct {
	Trigger     string        `json:"trigger"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Checks      []CheckResult `json:"checks"`
}

// Violations returns the per-check counts keyed by check name.
func (r AuditReport) Violations() map[string]int {
	out := make(map[string]int, len(r.Checks))
	for _, c := range r.Checks {
		out[c.Name] = c.Count
	}
	return out
}

// Clean reports whether no check found anything.
func (r AuditReport) Clean() bool {
	for _, c := range r.Checks {
		if c.Count > 0 {
			return false
		}
	}
	return true
}
