package similarity

import (
	"context"
	"fmt"

	"github.com/sells-group/lead-router/internal/model"
)

// Static returns a fixed set of comparable accounts shaped by the lead's
// industry and headcount. Used when no vector store is configured.
type Static struct{}

// FindSimilar returns three canned accounts.
func (Static) FindSimilar(_ context.Context, l *model.Lead) ([]model.SimilarAccount, error) {
	industry := l.Enrichment.Industry()
	if industry == "" {
		industry = "Technology"
	}
	headcount := l.Enrichment.Headcount()
	if headcount == 0 {
		headcount = 100
	}

	return []model.SimilarAccount{
		{
			Account: "Acme Inc",
			Outcome: "Won",
			Reason:  fmt.Sprintf("Same industry (%s) & similar size (%d employees)", industry, headcount),
			Score:   0.85,
			Metadata: map[string]any{
				"industry": industry, "employees": headcount, "deal_size": "$50K",
			},
		},
		{
			Account: "Gamma Solutions",
			Outcome: "Won",
			Reason:  "Similar tech stack and use case",
			Score:   0.78,
			Metadata: map[string]any{
				"industry": "SaaS", "employees": headcount, "deal_size": "$75K",
			},
		},
		{
			Account: "BetaCo",
			Outcome: "Lost",
			Reason:  "Budget timing issues, but good ICP fit",
			Score:   0.72,
			Metadata: map[string]any{
				"industry": industry, "employees": headcount * 2,
			},
		},
	}, nil
}
