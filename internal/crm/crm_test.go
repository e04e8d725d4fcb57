package crm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/routing"
	sfpkg "github.com/sells-group/lead-router/pkg/salesforce"
)

type mockSF struct {
	mock.Mock
}

func (m *mockSF) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	if recs, ok := args.Get(0).([]sfpkg.LeadRecord); ok {
		*(out.(*[]sfpkg.LeadRecord)) = recs
	}
	return args.Error(1)
}

func (m *mockSF) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}

func (m *mockSF) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	args := m.Called(ctx, sObjectName, id, fields)
	return args.Error(0)
}

func leadQuery(email string) any {
	return mock.MatchedBy(func(soql string) bool { return strings.Contains(soql, "Email = '"+email+"'") })
}

func TestResolveOwner(t *testing.T) {
	tbl := routing.Defaults()
	saas := model.Enrichment{Company: map[string]any{"industry": "SaaS"}}

	tests := []struct {
		name       string
		existing   string
		country    string
		enrichment model.Enrichment
		want       string
		reason     string
	}{
		{name: "existing wins", existing: "rep@company.com", country: "US", enrichment: saas, want: "rep@company.com", reason: "Existing CRM owner"},
		{name: "territory", country: "us", enrichment: saas, want: "us-team@company.com", reason: "Matched territory US → us-team@company.com"},
		{name: "industry", country: "FR", enrichment: saas, want: "saas-team@company.com", reason: "Matched industry saas"},
		{name: "default", country: "FR", want: "general@company.com", reason: "No territory match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, reason := ResolveOwner(tt.existing, model.Normalized{Country: tt.country}, tt.enrichment, tbl)
			assert.Equal(t, tt.want, owner)
			assert.Contains(t, reason, tt.reason)
		})
	}

	owner, _ := ResolveOwner("", model.Normalized{}, model.Enrichment{}, routing.Table{"US": "x"})
	assert.Equal(t, routing.UnassignedOwner, owner)
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Jane Q  Doe")
	assert.Equal(t, "Jane", first)
	assert.Equal(t, "Q Doe", last)

	first, last = splitName("Cher")
	assert.Empty(t, first)
	assert.Equal(t, "Cher", last)
}

func testLead() *model.Lead {
	l := model.NewLead(nil)
	l.LeadID = "evt-1"
	l.Normalized = model.Normalized{Email: "j@acme.com", Company: "Acme", Domain: "acme.com", FullName: "J Doe", Country: "US", Title: "Director"}
	l.Enrichment = model.Enrichment{Company: map[string]any{"employees": 150, "industry": "saas"}}
	l.SetScore(0.9)
	return l
}

func TestSalesforce_FindOwner_ExistingLead(t *testing.T) {
	m := new(mockSF)
	m.On("Query", mock.Anything, leadQuery("j@acme.com"), mock.Anything).
		Return([]sfpkg.LeadRecord{{ID: "00Qxx", Owner: &sfpkg.OwnerInfo{Email: "rep@company.com"}}}, nil)

	owner, reason, err := NewSalesforce(m).FindOwner(context.Background(), testLead().Normalized, model.Enrichment{}, routing.Defaults())
	require.NoError(t, err)
	assert.Equal(t, "rep@company.com", owner)
	assert.Contains(t, reason, "Existing CRM owner")
}

func TestSalesforce_FindOwner_Error(t *testing.T) {
	m := new(mockSF)
	m.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, _, err := NewSalesforce(m).FindOwner(context.Background(), testLead().Normalized, model.Enrichment{}, routing.Defaults())
	assert.ErrorContains(t, err, "crm: owner lookup")
}

func TestSalesforce_UpsertContact_Creates(t *testing.T) {
	m := new(mockSF)
	m.On("Query", mock.Anything, leadQuery("j@acme.com"), mock.Anything).Return(nil, nil)
	m.On("InsertOne", mock.Anything, "Lead", mock.MatchedBy(func(f map[string]any) bool {
		return f["FirstName"] == "J" && f["LastName"] == "Doe" && f["Company"] == "Acme" &&
			f["NumberOfEmployees"] == 150 && f["Industry"] == "saas" && f["Website"] == "acme.com" &&
			f["LeadSource"] == "webhook" && f[sfpkg.ScoreField] == 0.9
	})).Return("00QNEW", nil)

	res, err := NewSalesforce(m).UpsertContact(context.Background(), testLead())
	require.NoError(t, err)
	assert.Equal(t, &model.UpsertResult{ID: "00QNEW", Action: model.ActionCreated}, res)
	m.AssertExpectations(t)
}

func TestSalesforce_UpsertContact_Updates(t *testing.T) {
	m := new(mockSF)
	m.On("Query", mock.Anything, leadQuery("j@acme.com"), mock.Anything).Return([]sfpkg.LeadRecord{{ID: "00Qxx"}}, nil)
	m.On("UpdateOne", mock.Anything, "Lead", "00Qxx", mock.Anything).Return(nil)

	res, err := NewSalesforce(m).UpsertContact(context.Background(), testLead())
	require.NoError(t, err)
	assert.Equal(t, model.ActionUpdated, res.Action)
	assert.Equal(t, "00Qxx", res.ID)
	m.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestSalesforce_UpsertContact_Errors(t *testing.T) {
	m := new(mockSF)
	_, err := NewSalesforce(m).UpsertContact(context.Background(), model.NewLead(nil))
	assert.ErrorContains(t, err, "no email")

	m.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	m.On("InsertOne", mock.Anything, "Lead", mock.Anything).Return("", assert.AnError)
	_, err = NewSalesforce(m).UpsertContact(context.Background(), testLead())
	assert.ErrorContains(t, err, "crm: upsert")
}

func TestOffline(t *testing.T) {
	owner, reason, err := Offline{}.FindOwner(context.Background(), model.Normalized{Country: "CA"}, model.Enrichment{}, routing.Defaults())
	require.NoError(t, err)
	assert.Equal(t, "canada-team@company.com", owner)
	assert.Equal(t, "Matched territory CA → canada-team@company.com", reason)

	res, err := Offline{}.UpsertContact(context.Background(), testLead())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ID, "offline-"))
	assert.Equal(t, model.ActionCreated, res.Action)
}
