package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/lead-router/internal/model"
)

type captureStage struct{}

func (captureStage) Name() string { return NodeCapture }

// Run normalizes the raw payload, validates required fields and assigns the
// lead id.
func (captureStage) Run(_ context.Context, l *model.Lead) {
	l.Normalized = Normalize(l.Raw)
	n := l.Normalized

	var missing []string
	if n.Email == "" {
		missing = append(missing, "email")
	}
	if n.Company == "" {
		missing = append(missing, "company")
	}
	if n.FullName == "" {
		missing = append(missing, "full_name")
	}
	if len(missing) > 0 {
		l.AddErrorf(NodeCapture, "missing required fields: %s", strings.Join(missing, ", "))
	}

	id := StringField(l.Raw, "id")
	if id == "" {
		id = n.Email
	}
	if id != "" {
		l.SetLeadID(id)
	}
}

// Normalize derives the canonical contact fields from a raw payload.
func Normalize(raw map[string]any) model.Normalized {
	return model.Normalized{
		Email:    NormalizeEmail(raw),
		Company:  firstNonEmpty(StringField(raw, "company"), StringField(raw, "company_name"), nestedValue(raw, "company")),
		Domain:   hostOnly(firstNonEmpty(StringField(raw, "website"), StringField(raw, "domain"))),
		FullName: fullName(raw),
		Country:  StringField(raw, "country"),
		Title:    StringField(raw, "title"),
		Source:   StringField(raw, "source"),
	}
}

// NormalizeEmail returns the lowercased top-level email, falling back to
// properties.email.value.
func NormalizeEmail(raw map[string]any) string {
	email := StringField(raw, "email")
	if email == "" {
		email = nestedValue(raw, "email")
	}
	return strings.ToLower(email)
}

func fullName(raw map[string]any) string {
	if name := StringField(raw, "full_name"); name != "" {
		return name
	}
	return strings.TrimSpace(StringField(raw, "first_name") + " " + StringField(raw, "last_name"))
}

func hostOnly(site string) string {
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	if i := strings.Index(site, "/"); i >= 0 {
		site = site[:i]
	}
	return site
}

// nestedValue reads properties.<key>, accepting either a bare value or a
// {"value": ...} wrapper.
func nestedValue(raw map[string]any, key string) string {
	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return ""
	}
	switch v := props[key].(type) {
	case map[string]any:
		return StringField(v, "value")
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// StringField renders m[key] as trimmed text. Whole JSON numbers render
// without an exponent.
func StringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
