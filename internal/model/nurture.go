package model

import "time"

// NurtureRecord is the deterministic follow-up plan for low-scoring leads.
type NurtureRecord struct {
	Sequence NurtureSequence `json:"sequence"`
	Task     *FollowUpTask   `json:"task,omitempty"`
	Cadence  []CadenceStep   `json:"cadence,omitempty"`
}

// NurtureSequence describes the marketing sequence a lead is enrolled in.
type NurtureSequence struct {
	Name         string    `json:"name"`
	Reason       string    `json:"reason,omitempty"`
	CadenceDays  int       `json:"cadence_days,omitempty"`
	StartAt      time.Time `json:"start_at,omitempty"`
	ContentTrack string    `json:"content_track,omitempty"`
}

// FollowUpTask is a reminder for a rep to revisit the lead.
type FollowUpTask struct {
	Subject    string    `json:"subject"`
	DueAt      time.Time `json:"due_at"`
	Priority   string    `json:"priority"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// CadenceStep is one email in the nurture cadence.
type CadenceStep struct {
	DayOffset int    `json:"day_offset"`
	Template  string `json:"template"`
	Subject   string `json:"subject"`
}

// FallbackNurture is the minimal record written when a plan cannot be built.
func FallbackNurture() *NurtureRecord {
	return &NurtureRecord{Sequence: NurtureSequence{Name: "default_nurture"}}
}
