// Package model defines the lead record threaded through the routing pipeline.
package model

import (
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"
)

// Path is the branch a lead takes after scoring.
type Path string

// Decided paths.
const (
	PathRoute        Path = "route"
	PathNurture      Path = "nurture"
	PathManualReview Path = "manual_review"
)

// Normalized holds the canonicalized contact fields derived at capture.
type Normalized struct {
	Email    string `json:"email"`
	Company  string `json:"company"`
	Domain   string `json:"domain"`
	FullName string `json:"full_name"`
	Country  string `json:"country,omitempty"`
	Title    string `json:"title,omitempty"`
	Source   string `json:"source,omitempty"`
}

// SimilarAccount is a historical account comparable to the current lead.
type SimilarAccount struct {
	Account  string         `json:"account"`
	Outcome  string         `json:"outcome"`
	Reason   string         `json:"reason"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Lead is the mutable record passed from stage to stage. A Lead is owned by
// exactly one pipeline run and must not be shared across goroutines.
type Lead struct {
	LeadID          string           `json:"lead_id"`
	Raw             map[string]any   `json:"raw"`
	Normalized      Normalized       `json:"normalized"`
	Enrichment      Enrichment       `json:"enrichment"`
	Score           float64          `json:"score"`
	ScoreReasons    []string         `json:"score_reasons"`
	Owner           *string          `json:"owner"`
	RouteReason     string           `json:"route_reason,omitempty"`
	CRMRecordID     *string          `json:"crm_record_id"`
	SimilarAccounts []SimilarAccount `json:"similar_accounts"`
	Summary         string           `json:"summary,omitempty"`
	DecidedPath     Path             `json:"decided_path,omitempty"`
	Nurture         *NurtureRecord   `json:"nurture,omitempty"`
	Notifications   []string         `json:"notifications"`
	Errors          []string         `json:"errors"`
	Stages          []StageResult    `json:"stages"`
	ReceivedAt      time.Time        `json:"received_at"`
}

// NewLead creates a fresh record for a submission. The payload is copied so
// later mutation by the caller does not leak into Raw.
func NewLead(payload map[string]any) *Lead {
	raw := make(map[string]any, len(payload))
	maps.Copy(raw, payload)
	return &Lead{
		Raw:             raw,
		Enrichment:      Enrichment{},
		ScoreReasons:    []string{},
		SimilarAccounts: []SimilarAccount{},
		Notifications:   []string{},
		Errors:          []string{},
		ReceivedAt:      time.Now().UTC(),
	}
}

// SetLeadID assigns the lead id. Only the first call has an effect.
func (l *Lead) SetLeadID(id string) bool {
	if l.LeadID != "" {
		zap.L().Warn("model: lead id already set, ignoring",
			zap.String("lead_id", l.LeadID),
			zap.String("attempted", id),
		)
		return false
	}
	l.LeadID = id
	return true
}

// SetScore stores s clamped to [0, 1].
func (l *Lead) SetScore(s float64) {
	l.Score = Clamp(s)
}

// DecidePath records the branch outcome. Only the first call has an effect.
func (l *Lead) DecidePath(p Path) bool {
	if l.DecidedPath != "" {
		return false
	}
	l.DecidedPath = p
	return true
}

// ForcePath overwrites the decided path. Reserved for terminal stages that
// must guarantee their own path regardless of earlier outcomes.
func (l *Lead) ForcePath(p Path) {
	l.DecidedPath = p
}

// SetOwner assigns the routed owner.
func (l *Lead) SetOwner(owner, reason string) {
	l.Owner = &owner
	l.RouteReason = reason
}

// AddError appends a stage-tagged failure. Errors are never cleared.
func (l *Lead) AddError(stage string, err error) {
	if err == nil {
		return
	}
	l.Errors = append(l.Errors, fmt.Sprintf("%s: %s", stage, err.Error()))
}

// AddErrorf appends a formatted stage-tagged failure.
func (l *Lead) AddErrorf(stage, format string, args ...any) {
	l.Errors = append(l.Errors, stage+": "+fmt.Sprintf(format, args...))
}

// Notify records a sent notification tag.
func (l *Lead) Notify(tag string) {
	l.Notifications = append(l.Notifications, tag)
}

// OwnerValue returns the owner or an empty string.
func (l *Lead) OwnerValue() string {
	if l.Owner == nil {
		return ""
	}
	return *l.Owner
}

// Clamp bounds v to the closed unit interval.
func Clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// UpsertResult identifies the CRM record written for a lead.
type UpsertResult struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// CRM upsert actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)
