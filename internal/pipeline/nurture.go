package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
)

const (
	nurtureOwner   = "marketing@company.com"
	nurtureRevisit = 30
)

var nurtureCadence = []model.CadenceStep{
	{DayOffset: 1, Template: "welcome", Subject: "Welcome to our community"},
	{DayOffset: 7, Template: "industry_insights", Subject: "Industry insights and trends"},
	{DayOffset: 21, Template: "case_study", Subject: "Case study: How we helped similar companies"},
}

type nurtureStage struct {
	now func() time.Time
}

func (nurtureStage) Name() string { return NodeNurture }

// Run enrolls the lead in a nurture sequence. It makes no external calls and
// always leaves the lead on the nurture path.
func (s nurtureStage) Run(_ context.Context, l *model.Lead) {
	l.ForcePath(model.PathNurture)

	defer func() {
		if r := recover(); r != nil {
			l.ForcePath(model.PathNurture)
			l.Nurture = model.FallbackNurture()
			l.AddErrorf(NodeNurture, "build nurture plan: %v", r)
			zap.L().Error("pipeline: nurture plan panicked", zap.String("lead_id", l.LeadID), zap.Any("panic", r))
		}
	}()

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	l.Nurture = BuildNurture(l, now().UTC())
}

// BuildNurture derives the nurture plan from the lead's score and reasons.
func BuildNurture(l *model.Lead, now time.Time) *model.NurtureRecord {
	name, track, revisit := "low_score_nurture", "low_score_education", nurtureRevisit
	if l.Score < 0.2 {
		name, track, revisit = "long_term_nurture", "awareness", 2*nurtureRevisit
	}

	cadence := make([]model.CadenceStep, len(nurtureCadence))
	copy(cadence, nurtureCadence)

	lead := l.LeadID
	if lead == "" {
		lead = "unknown"
	}

	return &model.NurtureRecord{
		Sequence: model.NurtureSequence{
			Name:         name,
			Reason:       strings.Join(l.ScoreReasons, "; "),
			CadenceDays:  revisit,
			StartAt:      now,
			ContentTrack: track,
		},
		Task: &model.FollowUpTask{
			Subject:    fmt.Sprintf("Re-evaluate lead %s after nurturing period", lead),
			DueAt:      now.AddDate(0, 0, revisit),
			Priority:   "low",
			AssignedTo: nurtureOwner,
			Notes:      fmt.Sprintf("Score %.2f at enrollment", l.Score),
		},
		Cadence: cadence,
	}
}
