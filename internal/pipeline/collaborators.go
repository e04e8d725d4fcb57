package pipeline

import (
	"context"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
)

// Enricher returns firmographic and person data for a domain and email.
type Enricher interface {
	Enrich(ctx context.Context, domain, email string) (model.Enrichment, error)
}

// CRM resolves lead owners and writes lead records.
type CRM interface {
	FindOwner(ctx context.Context, n model.Normalized, e model.Enrichment, t routing.Table) (owner, reason string, err error)
	UpsertContact(ctx context.Context, l *model.Lead) (*model.UpsertResult, error)
}

// Similarity finds historical accounts comparable to a lead.
type Similarity interface {
	FindSimilar(ctx context.Context, l *model.Lead) ([]model.SimilarAccount, error)
}

// Advisor is the language model used for scoring and summaries.
type Advisor interface {
	Score(ctx context.Context, l *model.Lead, hint float64) (float64, []string, error)
	Summarize(ctx context.Context, l *model.Lead, similar []model.SimilarAccount) (string, error)
}

// Breaker names, one per collaborator.
const (
	breakerEnrichment = "enrichment"
	breakerCRM        = "crm"
	breakerSimilarity = "similarity"
	breakerAdvisor    = "advisor"
)
