package pipeline

import (
	"context"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/resilience"
	"github.com/sells-group/lead-router/internal/routing"
)

// RoutingFallbackReason is recorded when owner resolution fails.
const RoutingFallbackReason = "fallback due to routing error"

type routeStage struct {
	crm    CRM
	table  routing.Table
	bounds bounds
}

func (routeStage) Name() string { return NodeRoute }

// Run assigns an owner and upserts the lead into the CRM. Neither failure
// blocks the summarize stage.
func (s routeStage) Run(ctx context.Context, l *model.Lead) {
	breaker := s.bounds.breaker(breakerCRM)

	type assignment struct{ owner, reason string }
	a, err := resilience.Call(ctx, breaker, s.bounds.timeout, func(ctx context.Context) (assignment, error) {
		owner, reason, err := s.crm.FindOwner(ctx, l.Normalized, l.Enrichment, s.table)
		return assignment{owner, reason}, err
	})
	if err != nil || a.owner == "" {
		if err != nil {
			l.AddError(NodeRoute, err)
		}
		a = assignment{owner: s.table.Default(), reason: RoutingFallbackReason}
	}
	l.SetOwner(a.owner, a.reason)

	res, err := resilience.Call(ctx, breaker, s.bounds.timeout, func(ctx context.Context) (*model.UpsertResult, error) {
		return s.crm.UpsertContact(ctx, l)
	})
	if err != nil || res == nil || res.ID == "" {
		if err != nil {
			l.AddError(NodeRoute, err)
		} else {
			l.AddErrorf(NodeRoute, "crm upsert returned no record id")
		}
		l.CRMRecordID = nil
		return
	}
	id := res.ID
	l.CRMRecordID = &id
}
