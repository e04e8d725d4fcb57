// Package advisor scores and summarizes leads with a language model.
package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-router/internal/model"
)

// ScoringRubric is the system prompt for lead scoring.
const ScoringRubric = `You are a Senior RevOps Analyst tasked with scoring B2B leads.

SCORING CRITERIA:
- Score range: 0.0 to 1.0
- ICP industries: SaaS, FinTech, Ecommerce, HealthTech, EdTech
- Minimum headcount: 20+ employees
- Preferred titles: Director+, VP, C-level, Head of, Lead
- Geographic focus: US, CA, UK, DE, FR, MA
- Penalty for free email domains (gmail, yahoo, etc.)

Return ONLY valid JSON in this format:
{"score": 0.85, "reasons": ["ICP match: SaaS", "Seniority: Director", "Good headcount: 150"]}`

// SummaryRubric is the system prompt for account executive summaries.
const SummaryRubric = `You are a Sales Operations Specialist creating lead summaries for Account Executives.

Create a concise, actionable summary with 6-8 bullet points covering:
- Who they are (company, role, industry)
- Why now (timing signals, pain points)
- Similar accounts (success stories, patterns)
- Next best action (immediate next step)

Keep it professional, data-driven, and sales-ready.`

// ScorePrompt renders the lead and the rule-based hint for the model.
func ScorePrompt(l *model.Lead, hint float64) string {
	n := l.Normalized
	e := l.Enrichment
	var b strings.Builder
	b.WriteString("Score this lead based on the rubric:\n\nLEAD DATA:\n")
	fmt.Fprintf(&b, "- Email: %s\n", orNA(n.Email))
	fmt.Fprintf(&b, "- Company: %s\n", orNA(n.Company))
	fmt.Fprintf(&b, "- Title: %s\n", orNA(n.Title))
	fmt.Fprintf(&b, "- Country: %s\n", orNA(n.Country))
	fmt.Fprintf(&b, "- Source: %s\n", orNA(n.Source))
	b.WriteString("\nENRICHMENT:\n")
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(e.Industry()))
	fmt.Fprintf(&b, "- Headcount: %s\n", headcount(e))
	fmt.Fprintf(&b, "- Tech Stack: %s\n", orNA(strings.Join(e.TechStack(), ", ")))
	fmt.Fprintf(&b, "- Seniority: %s\n", orNA(seniority(e)))
	fmt.Fprintf(&b, "\nRule-based score hint: %.3f\n\nScore this lead and provide specific reasons:", hint)
	return b.String()
}

// SummaryPrompt renders the lead and up to three similar accounts.
func SummaryPrompt(l *model.Lead, similar []model.SimilarAccount) string {
	n := l.Normalized
	var b strings.Builder
	b.WriteString("Create a sales-ready summary for this lead:\n\n")
	fmt.Fprintf(&b, "LEAD: %s from %s\n", orNA(n.FullName), orNA(n.Company))
	fmt.Fprintf(&b, "ROLE: %s\n", orNA(n.Title))
	fmt.Fprintf(&b, "SCORE: %.2f/1.0\n", l.Score)
	fmt.Fprintf(&b, "INDUSTRY: %s\n", orNA(l.Enrichment.Industry()))
	fmt.Fprintf(&b, "SIZE: %s employees\n", headcount(l.Enrichment))
	if owner := l.OwnerValue(); owner != "" {
		fmt.Fprintf(&b, "OWNER: %s\n", owner)
	}
	b.WriteString("\nSIMILAR ACCOUNTS:\n")
	for i, a := range similar {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %s - %s: %s\n", i+1, a.Account, a.Outcome, a.Reason)
	}
	b.WriteString("\nGenerate a 6-8 bullet summary for the AE:")
	return b.String()
}

type scoreReply struct {
	Score   *float64        `json:"score"`
	Reasons json.RawMessage `json:"reasons"`
}

// ParseScore extracts {"score", "reasons"} from a model reply. The JSON
// object may be wrapped in prose or a code fence.
func ParseScore(content string) (float64, []string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return 0, nil, eris.New("advisor: no JSON object in score reply")
	}

	var reply scoreReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return 0, nil, eris.Wrap(err, "advisor: parse score reply")
	}
	if reply.Score == nil {
		return 0, nil, eris.New("advisor: score reply missing score")
	}

	var reasons []string
	if len(reply.Reasons) > 0 {
		if err := json.Unmarshal(reply.Reasons, &reasons); err != nil {
			var single string
			if err := json.Unmarshal(reply.Reasons, &single); err != nil {
				return 0, nil, eris.Wrap(err, "advisor: parse score reasons")
			}
			reasons = []string{single}
		}
	}
	if reasons == nil {
		reasons = []string{}
	}
	return *reply.Score, reasons, nil
}

// TemplateSummary is the deterministic summary used when no model is
// available or the model call fails.
func TemplateSummary(l *model.Lead, similar []model.SimilarAccount) string {
	n := l.Normalized
	priority := "Low"
	switch {
	case l.Score > 0.7:
		priority = "High"
	case l.Score > 0.4:
		priority = "Medium"
	}

	lines := []string{
		"Lead Summary for " + orUnknown(n.FullName),
		"",
		fmt.Sprintf("• Company: %s (%s)", orUnknown(n.Company), orDefault(l.Enrichment.Industry(), "Unknown industry")),
		"• Role: " + orDefault(n.Title, "Unknown title"),
		fmt.Sprintf("• Lead Score: %.2f/1.0", l.Score),
		"• Company Size: " + sizeOrUnknown(l.Enrichment) + " employees",
		"• Source: " + orUnknown(n.Source),
		"• Next Action: Schedule discovery call within 24 hours",
		fmt.Sprintf("• Similar Accounts: %d accounts found for context", len(similar)),
		"• Priority: " + priority,
	}
	return strings.Join(lines, "\n")
}

func headcount(e model.Enrichment) string {
	if hc := e.Headcount(); hc > 0 {
		return fmt.Sprint(hc)
	}
	return "N/A"
}

func sizeOrUnknown(e model.Enrichment) string {
	if hc := e.Headcount(); hc > 0 {
		return fmt.Sprint(hc)
	}
	return "Unknown"
}

func seniority(e model.Enrichment) string {
	if emp, ok := e.Person["employment"].(map[string]any); ok {
		if s, ok := emp["seniority"].(string); ok {
			return s
		}
	}
	s, _ := e.Person["seniority"].(string)
	return s
}

func orNA(s string) string { return orDefault(s, "N/A") }

func orUnknown(s string) string { return orDefault(s, "Unknown") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
