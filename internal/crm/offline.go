package crm

import (
	"context"

	"github.com/google/uuid"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
)

// Offline resolves owners from the routing table alone and fakes record
// creation. Used when Salesforce credentials are absent.
type Offline struct{}

// FindOwner resolves the owner without an existing-contact lookup.
func (Offline) FindOwner(_ context.Context, n model.Normalized, e model.Enrichment, t routing.Table) (string, string, error) {
	owner, reason := ResolveOwner("", n, e, t)
	return owner, reason, nil
}

// UpsertContact returns a synthetic record id.
func (Offline) UpsertContact(_ context.Context, _ *model.Lead) (*model.UpsertResult, error) {
	return &model.UpsertResult{ID: "offline-" + uuid.NewString(), Action: model.ActionCreated}, nil
}
