package pipeline

import (
	"context"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/resilience"
)

type enrichStage struct {
	enricher Enricher
	bounds   bounds
}

func (enrichStage) Name() string { return NodeEnrich }

func (s enrichStage) Run(ctx context.Context, l *model.Lead) {
	domain, email := l.Normalized.Domain, l.Normalized.Email
	if domain == "" && email == "" {
		l.Enrichment = model.Enrichment{}
		return
	}

	e, err := resilience.Call(ctx, s.bounds.breaker(breakerEnrichment), s.bounds.timeout,
		func(ctx context.Context) (model.Enrichment, error) {
			return s.enricher.Enrich(ctx, domain, email)
		})
	if err != nil {
		l.AddError(NodeEnrich, err)
		l.Enrichment = model.Enrichment{}
		return
	}
	l.Enrichment = e
}
