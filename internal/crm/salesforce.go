package crm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
	sfpkg "github.com/sells-group/lead-router/pkg/salesforce"
)

// Salesforce routes and upserts leads against the Salesforce Lead object.
type Salesforce struct {
	client sfpkg.Client
}

// NewSalesforce wraps a Salesforce client.
func NewSalesforce(c sfpkg.Client) *Salesforce {
	return &Salesforce{client: c}
}

// FindOwner returns the owner of an existing Salesforce lead with the same
// email, or resolves one from the routing table.
func (s *Salesforce) FindOwner(ctx context.Context, n model.Normalized, e model.Enrichment, t routing.Table) (string, string, error) {
	var existing string
	if n.Email != "" {
		rec, err := sfpkg.FindLeadByEmail(ctx, s.client, n.Email)
		if err != nil {
			return "", "", eris.Wrap(err, "crm: owner lookup")
		}
		if rec != nil {
			existing = rec.OwnerEmail()
		}
	}
	owner, reason := ResolveOwner(existing, n, e, t)
	return owner, reason, nil
}

// UpsertContact updates the lead matching the email or creates a new one.
func (s *Salesforce) UpsertContact(ctx context.Context, l *model.Lead) (*model.UpsertResult, error) {
	if l.Normalized.Email == "" {
		return nil, eris.New("crm: lead has no email")
	}

	existing, err := sfpkg.FindLeadByEmail(ctx, s.client, l.Normalized.Email)
	if err != nil {
		return nil, eris.Wrap(err, "crm: upsert lookup")
	}

	fields := leadFields(l, sfpkg.ScoreField)
	if existing != nil {
		if err := sfpkg.UpdateLead(ctx, s.client, existing.ID, fields); err != nil {
			return nil, eris.Wrap(err, "crm: upsert")
		}
		zap.L().Info("crm: updated lead", zap.String("lead_id", l.LeadID), zap.String("sf_id", existing.ID))
		return &model.UpsertResult{ID: existing.ID, Action: model.ActionUpdated}, nil
	}

	id, err := sfpkg.CreateLead(ctx, s.client, fields)
	if err != nil {
		return nil, eris.Wrap(err, "crm: upsert")
	}
	zap.L().Info("crm: created lead", zap.String("lead_id", l.LeadID), zap.String("sf_id", id))
	return &model.UpsertResult{ID: id, Action: model.ActionCreated}, nil
}
