package enrich

import (
	"context"

	"github.com/sells-group/lead-router/internal/model"
)

// Offline returns canned enrichment. It is used when no Clearbit key is
// configured so local runs still exercise the scoring rules.
type Offline struct{}

// Enrich returns a fixed mid-market SaaS profile for the domain and a
// director-level person for the email.
func (Offline) Enrich(_ context.Context, domain, email string) (model.Enrichment, error) {
	var out model.Enrichment
	if domain != "" {
		out.Company = map[string]any{
			"domain":    domain,
			"name":      "Mock Company (" + domain + ")",
			"employees": 120,
			"industry":  "SaaS",
			"category":  map[string]any{"industry": "Technology"},
			"tech":      []string{"AWS", "Snowflake", "Python"},
			"location":  map[string]any{"country": "US"},
		}
	}
	if email != "" {
		out.Person = map[string]any{
			"email": email,
			"name":  map[string]any{"fullName": "Mock Person"},
			"employment": map[string]any{
				"title":     "Director of Engineering",
				"seniority": "director",
			},
			"location": map[string]any{"country": "US"},
		}
	}
	return out, nil
}
