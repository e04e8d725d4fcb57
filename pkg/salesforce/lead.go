package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadObject is the sObject that inbound leads are written to.
const LeadObject = "Lead"

// ScoreField is the custom field holding the router's lead score.
const ScoreField = "Lead_Score__c"

// LeadRecord represents a Salesforce Lead with its owner.
type LeadRecord struct {
	ID        string     `json:"Id" salesforce:"Id"`
	Email     string     `json:"Email" salesforce:"Email"`
	FirstName string     `json:"FirstName" salesforce:"FirstName"`
	LastName  string     `json:"LastName" salesforce:"LastName"`
	Company   string     `json:"Company" salesforce:"Company"`
	OwnerID   string     `json:"OwnerId" salesforce:"OwnerId"`
	Owner     *OwnerInfo `json:"Owner" salesforce:"Owner"`
}

// OwnerInfo is the Owner relationship selected alongside a Lead.
type OwnerInfo struct {
	Name  string `json:"Name" salesforce:"Name"`
	Email string `json:"Email" salesforce:"Email"`
}

// OwnerEmail returns the owner's email, falling back to the owner id.
func (r *LeadRecord) OwnerEmail() string {
	if r.Owner != nil && r.Owner.Email != "" {
		return r.Owner.Email
	}
	return r.OwnerID
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "Email", "FirstName", "LastName", "Company", "OwnerId", "Owner.Name", "Owner.Email",
}

// FindLeadByEmail returns the most recently modified Lead with the given
// email. Returns nil if none exists.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*LeadRecord, error) {
	if email == "" {
		return nil, eris.New("sf: email is required")
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' ORDER BY LastModifiedDate DESC LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []LeadRecord
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by email %s", email))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// CreateLead creates a Lead and returns its Salesforce ID. Salesforce
// requires LastName and Company.
func CreateLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	for _, req := range []string{"LastName", "Company"} {
		if v, _ := fields[req].(string); v == "" {
			return "", eris.New(fmt.Sprintf("sf: lead %s is required", req))
		}
	}
	id, err := c.InsertOne(ctx, LeadObject, fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// UpdateLead updates a Lead with the given fields.
func UpdateLead(ctx context.Context, c Client, id string, fields map[string]any) error {
	if id == "" {
		return eris.New("sf: lead id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, LeadObject, id, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update lead %s", id))
	}
	return nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
