package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
)

// --- Enricher Mock ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, domain, email string) (model.Enrichment, error) {
	args := m.Called(ctx, domain, email)
	return args.Get(0).(model.Enrichment), args.Error(1)
}

// --- CRM Mock ---

type mockCRM struct {
	mock.Mock
}

func (m *mockCRM) FindOwner(ctx context.Context, n model.Normalized, e model.Enrichment, t routing.Table) (string, string, error) {
	args := m.Called(ctx, n, e, t)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockCRM) UpsertContact(ctx context.Context, l *model.Lead) (*model.UpsertResult, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UpsertResult), args.Error(1)
}

// --- Similarity Mock ---

type mockSimilarity struct {
	mock.Mock
}

func (m *mockSimilarity) FindSimilar(ctx context.Context, l *model.Lead) ([]model.SimilarAccount, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SimilarAccount), args.Error(1)
}

// --- Advisor Mock ---

type mockAdvisor struct {
	mock.Mock
}

func (m *mockAdvisor) Score(ctx context.Context, l *model.Lead, hint float64) (float64, []string, error) {
	args := m.Called(ctx, l, hint)
	var reasons []string
	if r := args.Get(1); r != nil {
		reasons = r.([]string)
	}
	return args.Get(0).(float64), reasons, args.Error(2)
}

func (m *mockAdvisor) Summarize(ctx context.Context, l *model.Lead, similar []model.SimilarAccount) (string, error) {
	args := m.Called(ctx, l, similar)
	return args.String(0), args.Error(1)
}

type mocks struct {
	enricher   *mockEnricher
	crm        *mockCRM
	similarity *mockSimilarity
	advisor    *mockAdvisor
}

func newMocks() *mocks {
	return &mocks{
		enricher:   &mockEnricher{},
		crm:        &mockCRM{},
		similarity: &mockSimilarity{},
		advisor:    &mockAdvisor{},
	}
}

func (m *mocks) deps() Deps {
	return Deps{
		Enricher:   m.enricher,
		CRM:        m.crm,
		Similarity: m.similarity,
		Advisor:    m.advisor,
		Routing:    routing.Defaults(),
	}
}
