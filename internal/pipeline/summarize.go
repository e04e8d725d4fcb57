package pipeline

import (
	"context"

	"github.com/sells-group/lead-router/internal/advisor"
	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/resilience"
)

type summarizeStage struct {
	similarity Similarity
	advisor    Advisor
	bounds     bounds
}

func (summarizeStage) Name() string { return NodeSummarize }

func (s summarizeStage) Run(ctx context.Context, l *model.Lead) {
	similar, err := resilience.Call(ctx, s.bounds.breaker(breakerSimilarity), s.bounds.timeout,
		func(ctx context.Context) ([]model.SimilarAccount, error) {
			return s.similarity.FindSimilar(ctx, l)
		})
	if err != nil {
		l.AddError(NodeSummarize, err)
		similar = nil
	}
	if similar == nil {
		similar = []model.SimilarAccount{}
	}
	l.SimilarAccounts = similar

	summary, err := resilience.Call(ctx, s.bounds.breaker(breakerAdvisor), s.bounds.timeout,
		func(ctx context.Context) (string, error) {
			return s.advisor.Summarize(ctx, l, similar)
		})
	switch {
	case err != nil:
		l.AddError(NodeSummarize, err)
		summary = advisor.TemplateSummary(l, similar)
	case summary == "":
		l.AddErrorf(NodeSummarize, "empty summary")
		summary = advisor.TemplateSummary(l, similar)
	}
	l.Summary = summary
}
