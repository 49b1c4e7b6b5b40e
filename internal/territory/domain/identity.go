package domain

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Scope selects the population within which same-name targets collapse.
type Scope string

const (
	// ScopeTerritory keeps the newest row per name within each territory.
	ScopeTerritory Scope = "territory"
	// ScopeGlobal keeps the newest row per name across all territories.
	ScopeGlobal Scope = "global"
)

// ParseScope converts a configured value into a Scope.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case ScopeTerritory, "":
		return ScopeTerritory, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	}
	return "", fmt.Errorf("unknown canonical scope %q", value)
}

// NameKey normalizes a target name for identity comparison: surrounding
// whitespace is trimmed and the result is case-folded. Inner spacing and
// punctuation are significant.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// CompareNewestFirst orders targets by creation time descending with the id
// as tie-break.
func CompareNewestFirst(a, b Target) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(b.ID[:], a.ID[:])
}

// SortNewestFirst sorts targets in place.
func SortNewestFirst(targets []Target) {
	slices.SortFunc(targets, CompareNewestFirst)
}

// Resolver picks the canonical record for each group of same-name targets.
type Resolver struct {
	scope Scope
}

func NewResolver(scope Scope) Resolver {
	if scope == "" {
		scope = ScopeTerritory
	}
	return Resolver{scope: scope}
}

func (r Resolver) Scope() Scope { return r.scope }

// groupKey returns the identity key of t under the resolver's scope.
func (r Resolver) groupKey(t Target) string {
	key := t.NameKey
	if key == "" {
		key = NameKey(t.Name)
	}
	if r.scope == ScopeGlobal {
		return key
	}
	tid := t.TerritoryID()
	if tid == nil {
		return uuid.Nil.String() + "|" + key
	}
	return tid.String() + "|" + key
}

// Canonical returns the newest record per identity key, newest first. The
// input slice is not modified. Callers must pass every record that can share
// a key with the records they care about; under ScopeGlobal that means rows
// from other territories too.
func (r Resolver) Canonical(targets []Target) []Target {
	ordered := slices.Clone(targets)
	SortNewestFirst(ordered)

	seen := make(map[string]struct{}, len(ordered))
	out := make([]Target, 0, len(ordered))
	for _, t := range ordered {
		k := r.groupKey(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CanonicalIDs is Canonical reduced to a set of ids.
func (r Resolver) CanonicalIDs(targets []Target) map[uuid.UUID]struct{} {
	canon := r.Canonical(targets)
	ids := make(map[uuid.UUID]struct{}, len(canon))
	for _, t := range canon {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// ExcludeInternal drops internal records. Internal records never take part in
// seeding, visibility or counting.
func ExcludeInternal(targets []Target) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !t.IsInternal {
			out = append(out, t)
		}
	}
	return out
}

// InTerritories keeps the targets that resolve to one of territoryIDs.
func InTerritories(targets []Target, territoryIDs []uuid.UUID) []Target {
	set := make(map[uuid.UUID]struct{}, len(territoryIDs))
	for _, id := range territoryIDs {
		set[id] = struct{}{}
	}
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		tid := t.TerritoryID()
		if tid == nil {
			continue
		}
		if _, ok := set[*tid]; ok {
			out = append(out, t)
		}
	}
	return out
}

// NameKeys returns the distinct identity name keys of targets.
func NameKeys(targets []Target) []string {
	seen := make(map[string]struct{}, len(targets))
	keys := make([]string, 0, len(targets))
	for _, t := range targets {
		k := t.NameKey
		if k == "" {
			k = NameKey(t.Name)
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
