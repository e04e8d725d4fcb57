// Package similarity finds historical accounts comparable to a lead.
package similarity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
)

// DefaultClass is the Weaviate class holding account outcomes.
const DefaultClass = "AccountOutcome"

// Config configures the Weaviate adapter.
type Config struct {
	Host   string
	Scheme string
	APIKey string
	Class  string
	TopK   int
}

// Outcome is a closed deal recorded for future similarity lookups.
type Outcome struct {
	Company   string   `json:"company"`
	Industry  string   `json:"industry"`
	Employees int      `json:"employees"`
	Country   string   `json:"country"`
	Tech      []string `json:"tech"`
	Outcome   string   `json:"outcome"`
	Reason    string   `json:"reason"`
	DealSize  string   `json:"deal_size"`
}

// Weaviate searches account outcomes with nearText queries.
type Weaviate struct {
	client *weaviate.Client
	class  string
	topK   int
}

// NewWeaviate creates a Weaviate-backed similarity source.
func NewWeaviate(cfg Config) (*Weaviate, error) {
	if cfg.Host == "" {
		return nil, eris.New("similarity: weaviate host is required")
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if wcfg.Scheme == "" {
		wcfg.Scheme = "http"
	}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, eris.Wrap(err, "similarity: create weaviate client")
	}

	w := &Weaviate{client: client, class: cfg.Class, topK: cfg.TopK}
	if w.class == "" {
		w.class = DefaultClass
	}
	if w.topK <= 0 {
		w.topK = 3
	}
	return w, nil
}

// EnsureSchema creates the outcome class when it does not exist.
func (w *Weaviate) EnsureSchema(ctx context.Context) error {
	if _, err := w.client.Schema().ClassGetter().WithClassName(w.class).Do(ctx); err == nil {
		return nil
	}
	zap.L().Info("similarity: creating weaviate class", zap.String("class", w.class))
	if err := w.client.Schema().ClassCreator().WithClass(outcomeClass(w.class)).Do(ctx); err != nil {
		return eris.Wrapf(err, "similarity: create class %s", w.class)
	}
	return nil
}

// FindSimilar returns up to TopK account outcomes nearest to the lead's
// firmographic profile, most similar first.
func (w *Weaviate) FindSimilar(ctx context.Context, l *model.Lead) ([]model.SimilarAccount, error) {
	concept := Concept(l)
	nearText := w.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{concept})

	fields := []graphql.Field{
		{Name: "company_name"},
		{Name: "industry"},
		{Name: "employees"},
		{Name: "country"},
		{Name: "outcome"},
		{Name: "reason"},
		{Name: "deal_size"},
		{Name: "_additional { certainty distance }"},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(w.topK).
		Do(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "similarity: near text query")
	}
	if len(result.Errors) > 0 {
		return nil, eris.Errorf("similarity: query error: %s", result.Errors[0].Message)
	}
	return parseAccounts(result, w.class), nil
}

// StoreOutcome records a closed account for future lookups.
func (w *Weaviate) StoreOutcome(ctx context.Context, o Outcome) error {
	if o.Company == "" || o.Outcome == "" {
		return eris.New("similarity: outcome requires company and outcome")
	}
	props := map[string]any{
		"company_name": o.Company,
		"industry":     o.Industry,
		"employees":    o.Employees,
		"country":      strings.ToUpper(o.Country),
		"tech":         o.Tech,
		"outcome":      o.Outcome,
		"reason":       o.Reason,
		"deal_size":    o.DealSize,
		"recorded_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.client.Data().Creator().
		WithClassName(w.class).
		WithProperties(props).
		Do(ctx); err != nil {
		return eris.Wrapf(err, "similarity: store outcome for %s", o.Company)
	}
	zap.L().Info("similarity: stored account outcome",
		zap.String("company", o.Company),
		zap.String("outcome", o.Outcome),
	)
	return nil
}

// Concept renders the lead's firmographics as nearText input.
func Concept(l *model.Lead) string {
	var parts []string
	if ind := l.Enrichment.Industry(); ind != "" {
		parts = append(parts, "industry "+strings.ToLower(ind))
	}
	if hc := l.Enrichment.Headcount(); hc > 0 {
		parts = append(parts, fmt.Sprintf("%d employees", hc))
	}
	if c := l.Normalized.Country; c != "" {
		parts = append(parts, "country "+strings.ToUpper(c))
	}
	if tech := l.Enrichment.TechStack(); len(tech) > 0 {
		parts = append(parts, "tech "+strings.Join(tech, ", "))
	}
	if len(parts) == 0 {
		return l.Normalized.Company
	}
	return strings.Join(parts, "; ")
}

func parseAccounts(result *models.GraphQLResponse, class string) []model.SimilarAccount {
	out := []model.SimilarAccount{}
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return out
	}
	objects, ok := data[class].([]interface{})
	if !ok {
		return out
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		acct := model.SimilarAccount{
			Account:  str(m, "company_name"),
			Outcome:  str(m, "outcome"),
			Reason:   str(m, "reason"),
			Metadata: map[string]any{},
		}
		if acct.Account == "" {
			continue
		}
		if acct.Reason == "" {
			acct.Reason = "Vector similarity"
		}
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				acct.Score = certainty
			}
		}
		for _, k := range []string{"industry", "employees", "country", "deal_size"} {
			if v, ok := m[k]; ok && v != nil {
				acct.Metadata[k] = v
			}
		}
		out = append(out, acct)
	}
	return out
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func outcomeClass(name string) *models.Class {
	text := func(n, desc string) *models.Property {
		return &models.Property{Name: n, DataType: []string{"text"}, Description: desc}
	}
	return &models.Class{
		Class:       name,
		Description: "Closed account outcomes used to find comparable accounts for new leads",
		Properties: []*models.Property{
			text("company_name", "Account name"),
			text("industry", "Company industry"),
			{Name: "employees", DataType: []string{"int"}, Description: "Headcount at close"},
			text("country", "ISO country code"),
			{Name: "tech", DataType: []string{"text[]"}, Description: "Detected technologies"},
			text("outcome", "Won, Lost or No Decision"),
			text("reason", "Why the deal closed the way it did"),
			text("deal_size", "Contract value"),
			{Name: "recorded_at", DataType: []string{"date"}, Description: "When the outcome was stored"},
		},
	}
}
