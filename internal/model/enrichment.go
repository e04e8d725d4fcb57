package model

import (
	"strconv"
	"strings"
)

// Enrichment holds firmographic and person data returned by the enrichment
// provider. Both maps are nil when nothing was found.
type Enrichment struct {
	Company map[string]any `json:"company,omitempty"`
	Person  map[string]any `json:"person,omitempty"`
}

// IsEmpty reports whether neither company nor person data is present.
func (e Enrichment) IsEmpty() bool {
	return len(e.Company) == 0 && len(e.Person) == 0
}

// Headcount returns the employee count from the company metrics, falling
// back to a top-level "employees" field.
func (e Enrichment) Headcount() int {
	if metrics, ok := e.Company["metrics"].(map[string]any); ok {
		if n, ok := toInt(metrics["employees"]); ok {
			return n
		}
	}
	if n, ok := toInt(e.Company["employees"]); ok {
		return n
	}
	return 0
}

// Industry returns the company industry. A top-level "industry" field wins
// over the category block.
func (e Enrichment) Industry() string {
	if s, ok := e.Company["industry"].(string); ok && s != "" {
		return s
	}
	if cat, ok := e.Company["category"].(map[string]any); ok {
		if s, ok := cat["industry"].(string); ok {
			return s
		}
	}
	return ""
}

// TechStack returns the company's detected technologies.
func (e Enrichment) TechStack() []string {
	for _, key := range []string{"tech", "tech_stack"} {
		switch v := e.Company[key].(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
