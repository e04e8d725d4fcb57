// Package crm resolves lead owners and writes leads to the CRM.
package crm

import (
	"fmt"
	"strings"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
)

// industryOwners overrides territory routing for specialist teams when the
// lead's country has no territory entry.
var industryOwners = map[string]string{
	"saas":      "saas-team@company.com",
	"fintech":   "fintech-team@company.com",
	"ecommerce": "ecommerce-team@company.com",
}

// ResolveOwner applies owner precedence: an existing CRM owner, then the
// country territory, then the industry team, then DEFAULT.
func ResolveOwner(existing string, n model.Normalized, e model.Enrichment, t routing.Table) (string, string) {
	if existing != "" {
		return existing, fmt.Sprintf("Existing CRM owner → %s", existing)
	}

	if owner, ok := t.Owner(n.Country); ok {
		return owner, fmt.Sprintf("Matched territory %s → %s", strings.ToUpper(n.Country), owner)
	}

	industry := strings.ToLower(strings.TrimSpace(e.Industry()))
	if owner, ok := industryOwners[industry]; ok {
		return owner, fmt.Sprintf("Matched industry %s → %s", industry, owner)
	}

	owner := t.Default()
	return owner, fmt.Sprintf("No territory match → %s", owner)
}

// leadFields maps a routed lead onto Salesforce Lead fields.
func leadFields(l *model.Lead, scoreField string) map[string]any {
	n := l.Normalized
	first, last := splitName(n.FullName)
	if last == "" {
		last = n.Company
	}

	source := n.Source
	if source == "" {
		source = "webhook"
	}

	fields := map[string]any{
		"FirstName":  first,
		"LastName":   last,
		"Email":      n.Email,
		"Company":    n.Company,
		"Title":      n.Title,
		"Country":    n.Country,
		"LeadSource": source,
		scoreField:   l.Score,
	}

	if len(l.Enrichment.Company) > 0 {
		if hc := l.Enrichment.Headcount(); hc > 0 {
			fields["NumberOfEmployees"] = hc
		}
		if ind := l.Enrichment.Industry(); ind != "" {
			fields["Industry"] = ind
		}
	}
	if n.Domain != "" {
		fields["Website"] = n.Domain
	}
	return fields
}

// splitName splits "Jane Q Doe" into "Jane" and "Q Doe". A single word is
// treated as the last name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
