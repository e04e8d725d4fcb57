// Package routing loads the territory routing table that maps country codes
// to owners.
package routing

import (
	"maps"
	"slices"
	"strings"
)

// DefaultKey is the catch-all entry of a routing table.
const DefaultKey = "DEFAULT"

// UnassignedOwner is used when a table carries no DEFAULT entry.
const UnassignedOwner = "unassigned@company.com"

// Table maps upper-case ISO country codes (and DEFAULT) to owner identifiers.
type Table map[string]string

// Defaults returns the built-in table used when no source can be loaded.
func Defaults() Table {
	return Table{
		"US":       "us-team@company.com",
		"CA":       "canada-team@company.com",
		"UK":       "emea-team@company.com",
		DefaultKey: "general@company.com",
	}
}

// Owner returns the owner for country, matching case-insensitively.
func (t Table) Owner(country string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(country))
	if c == "" || c == DefaultKey {
		return "", false
	}
	owner, ok := t[c]
	return owner, ok && owner != ""
}

// Default returns the DEFAULT owner, or UnassignedOwner when missing.
func (t Table) Default() string {
	if owner := t[DefaultKey]; owner != "" {
		return owner
	}
	return UnassignedOwner
}

// Countries returns the territory codes in sorted order, excluding DEFAULT.
func (t Table) Countries() []string {
	keys := slices.Sorted(maps.Keys(t))
	return slices.DeleteFunc(keys, func(k string) bool { return k == DefaultKey })
}

// normalize upper-cases keys and drops blank owners.
func normalize(raw map[string]string) Table {
	t := make(Table, len(raw))
	for k, v := range raw {
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		t[k] = v
	}
	return t
}
