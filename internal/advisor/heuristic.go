package advisor

import (
	"context"
	"strings"

	"github.com/sells-group/lead-router/internal/model"
)

// Heuristic is the offline advisor. It nudges the rule-based hint with a few
// firmographic signals and returns the template summary.
type Heuristic struct{}

// Score starts from hint and adds 0.1 for each of: a known industry, 100+
// employees and a senior title.
func (Heuristic) Score(_ context.Context, l *model.Lead, hint float64) (float64, []string, error) {
	score := hint
	var reasons []string

	if ind := l.Enrichment.Industry(); ind != "" {
		reasons = append(reasons, "ICP match: "+ind)
		score += 0.1
	}
	if l.Enrichment.Headcount() >= 100 {
		reasons = append(reasons, "Enterprise size company")
		score += 0.1
	}
	title := strings.ToLower(l.Normalized.Title)
	for _, senior := range []string{"director", "vp", "cxo"} {
		if strings.Contains(title, senior) {
			reasons = append(reasons, "Senior decision maker")
			score += 0.1
			break
		}
	}

	if len(reasons) == 0 {
		reasons = []string{"Basic qualification met"}
	}
	return model.Clamp(score), reasons, nil
}

// Summarize returns TemplateSummary.
func (Heuristic) Summarize(_ context.Context, l *model.Lead, similar []model.SimilarAccount) (string, error) {
	return TemplateSummary(l, similar), nil
}
