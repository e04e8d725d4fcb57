// Package intake is the entry point for lead submissions. It derives the
// idempotency key, runs admitted leads through the pipeline and notifies
// sales.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/pipeline"
)

// ErrPipeline marks a submission the workflow engine could not process. The
// idempotency key stays consumed.
var ErrPipeline = eris.New("intake: pipeline failure")

// Response statuses.
const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate_ignored"
)

// HighPriorityScore is the score at or above which the alert channel is used.
const HighPriorityScore = 0.8

// Admitter is the idempotency guard.
type Admitter interface {
	Admit(ctx context.Context, key string, ttl time.Duration) bool
	AdmittedAt(ctx context.Context, key string) (time.Time, bool)
}

// Runner executes the workflow for one lead.
type Runner interface {
	Run(ctx context.Context, l *model.Lead) (*model.Lead, error)
}

// Response is returned for every accepted submission.
type Response struct {
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	Key            string     `json:"idempotency_key"`
	RunID          string     `json:"run_id,omitempty"`
	LeadID         string     `json:"lead_id,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	Owner          *string    `json:"owner,omitempty"`
	DecidedPath    model.Path `json:"decided_path,omitempty"`
	CRMRecordID    *string    `json:"crm_record_id,omitempty"`
	ProcessingTime float64    `json:"processing_time"`
	FirstSeenAt    *time.Time `json:"first_seen_at,omitempty"`
	Notifications  []string   `json:"notifications,omitempty"`
	Errors         []string   `json:"errors,omitempty"`

	Lead *model.Lead `json:"-"`
}

// Service admits, runs and notifies.
type Service struct {
	guard    Admitter
	runner   Runner
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

// New creates a Service. notifier may be nil.
func New(guard Admitter, runner Runner, notifier Notifier, ttl time.Duration) *Service {
	return &Service{guard: guard, runner: runner, notifier: notifier, ttl: ttl, now: time.Now}
}

// Key derives the idempotency key: event_id, else the normalized email, else
// a nanosecond timestamp.
func (s *Service) Key(payload map[string]any) string {
	if k := pipeline.StringField(payload, "event_id"); k != "" {
		return k
	}
	if email := pipeline.NormalizeEmail(payload); email != "" {
		return email
	}
	return strconv.FormatInt(s.now().UnixNano(), 10)
}

// Submit processes one payload. A duplicate key returns a duplicate response
// without running the pipeline. An orchestration failure returns an error
// wrapping ErrPipeline.
func (s *Service) Submit(ctx context.Context, payload map[string]any) (*Response, error) {
	start := s.now()
	key := s.Key(payload)
	log := zap.L().With(zap.String("idempotency_key", key))

	if !s.guard.Admit(ctx, key, s.ttl) {
		log.Warn("intake: duplicate lead ignored")
		resp := &Response{
			Status:         StatusDuplicate,
			Message:        "Lead already processed",
			Key:            key,
			ProcessingTime: s.now().Sub(start).Seconds(),
		}
		if at, ok := s.guard.AdmittedAt(ctx, key); ok {
			resp.FirstSeenAt = &at
		}
		return resp, nil
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("intake: starting workflow")

	lead, err := s.runner.Run(ctx, model.NewLead(payload))
	if err != nil {
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) {
			log.Error("intake: pipeline failed", zap.String("node", pe.Node), zap.Error(err))
		} else {
			log.Error("intake: pipeline failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	s.notify(ctx, lead)

	score := lead.Score
	resp := &Response{
		Status:         StatusProcessed,
		Key:            key,
		RunID:          runID,
		LeadID:         lead.LeadID,
		Score:          &score,
		Owner:          lead.Owner,
		DecidedPath:    lead.DecidedPath,
		CRMRecordID:    lead.CRMRecordID,
		ProcessingTime: s.now().Sub(start).Seconds(),
		Notifications:  lead.Notifications,
		Errors:         lead.Errors,
		Lead:           lead,
	}

	log.Info("intake: lead processed",
		zap.String("lead_id", lead.LeadID),
		zap.Float64("score", lead.Score),
		zap.String("decided_path", string(lead.DecidedPath)),
		zap.Int("errors", len(lead.Errors)),
		zap.Float64("processing_time", resp.ProcessingTime),
	)
	return resp, nil
}

func (s *Service) notify(ctx context.Context, l *model.Lead) {
	if s.notifier == nil {
		return
	}
	kind, tag := KindStandard, "slack"
	if l.Score >= HighPriorityScore {
		kind, tag = KindHighPriority, "high_priority_slack"
	}
	id, err := s.notifier.Notify(ctx, l, kind)
	if err != nil {
		l.AddError("notify", err)
		zap.L().Error("intake: notification failed", zap.String("lead_id", l.LeadID), zap.Error(err))
		return
	}
	if id != "" {
		l.Notify(tag + ":" + id)
	}
}
