// Package expand holds the static alias tables consulted by the address
// pipeline: abbreviation expansion partitioned by token role, and the
// state/province code lookup. Tables are loaded once from embedded data
// and are read-only afterwards, so they are safe to share across goroutines.
package expand

import (
	"fmt"
	"strings"
)

// Role scopes an alias lookup to one token category
type Role string

const (
	RoleStreetType     Role = "street_type"
	RoleDirectional    Role = "directional"
	RoleUnitDesignator Role = "unit_designator"
	RoleName           Role = "name"
	RoleGeneric        Role = "generic"
)

// Table is the immutable abbreviation table
type Table struct {
	entries    map[Role]map[string]string
	canonicals map[Role]map[string]bool
}

// NewTable builds the table from the embedded rules
func NewTable() (*Table, error) {
	cfg, err := LoadRulesConfig()
	if err != nil {
		return nil, fmt.Errorf("load abbreviation rules: %w", err)
	}
	return NewTableFromConfig(cfg)
}

// NewTableFromConfig builds a table from an explicit config, used by tests
// that substitute their own rules
func NewTableFromConfig(cfg *RulesConfig) (*Table, error) {
	t := &Table{
		entries: map[Role]map[string]string{
			RoleStreetType:     lowerKeys(cfg.StreetTypes),
			RoleDirectional:    lowerKeys(cfg.Directionals),
			RoleUnitDesignator: lowerKeys(cfg.UnitDesignators),
			RoleName:           lowerKeys(cfg.NameWords),
			RoleGeneric:        lowerKeys(cfg.GenericWords),
		},
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	t.canonicals = make(map[Role]map[string]bool, len(t.entries))
	for role, entries := range t.entries {
		t.canonicals[role] = make(map[string]bool, len(entries))
		for _, canon := range entries {
			t.canonicals[role][strings.ToLower(canon)] = true
		}
	}
	return t, nil
}

// Expand returns the canonical form of token for the given role, or the
// token unchanged when no entry matches. It never fails.
func (t *Table) Expand(token string, role Role) string {
	if canon, ok := t.entries[role][strings.ToLower(token)]; ok {
		return canon
	}
	return token
}

// Lookup reports the canonical form and whether an entry exists
func (t *Table) Lookup(token string, role Role) (string, bool) {
	canon, ok := t.entries[role][strings.ToLower(token)]
	return canon, ok
}

// Has reports whether token is a known alias for the role
func (t *Table) Has(token string, role Role) bool {
	_, ok := t.entries[role][strings.ToLower(token)]
	return ok
}

// Canonical reports whether token already equals a canonical form for the role
func (t *Table) Canonical(token string, role Role) bool {
	return t.canonicals[role][strings.ToLower(token)]
}

// validate enforces the table invariants: within a role no alias may map to
// a canonical form that is itself an alias for a different canonical form,
// otherwise repeated expansion would not be idempotent.
func (t *Table) validate() error {
	for role, entries := range t.entries {
		for alias, canon := range entries {
			if canon == "" {
				return fmt.Errorf("role %s: alias %q has empty canonical form", role, alias)
			}
			if next, ok := entries[strings.ToLower(canon)]; ok && next != canon {
				return fmt.Errorf("role %s: canonical form %q of alias %q is itself an alias for %q",
					role, canon, alias, next)
			}
		}
	}
	return nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// States is the immutable state and province code lookup
type States struct {
	byName map[string]string
	codes  map[string]bool
}

// NewStates builds the lookup from the embedded state tables
func NewStates() (*States, error) {
	cfg, err := LoadStatesConfig()
	if err != nil {
		return nil, fmt.Errorf("load state table: %w", err)
	}
	s := &States{
		byName: make(map[string]string),
		codes:  make(map[string]bool),
	}
	for _, group := range []map[string]string{cfg.States, cfg.Territories, cfg.Provinces} {
		for name, code := range group {
			code = strings.ToUpper(code)
			if len(code) != 2 {
				return nil, fmt.Errorf("state table: %q has non two-letter code %q", name, code)
			}
			s.byName[strings.ToLower(name)] = code
			s.codes[code] = true
		}
	}
	return s, nil
}

// Code resolves a full state or province name, or a bare two-letter code in
// any casing, to its canonical two-letter code
func (s *States) Code(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) == 2 {
		upper := strings.ToUpper(trimmed)
		if s.codes[upper] {
			return upper, true
		}
		return "", false
	}
	code, ok := s.byName[strings.ToLower(trimmed)]
	return code, ok
}

// Names returns every known full name, used for fuzzy suggestions
func (s *States) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}
