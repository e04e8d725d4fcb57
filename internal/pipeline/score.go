package pipeline

import (
	"context"
	"slices"
	"strings"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/internal/resilience"
)

// FallbackScoreReason replaces model reasons when the model is unavailable.
const FallbackScoreReason = "model scoring unavailable; using rule-based score"

var (
	icpIndustries = []string{"saas", "fintech", "ecommerce", "healthtech", "edtech"}
	seniorTitles  = []string{"head", "lead", "director", "vp", "cxo", "chief", "manager"}
	focusCountry  = []string{"US", "CA", "UK", "DE", "FR", "MA"}
	freeMail      = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com"}
)

// RuleScore is the deterministic firmographic score, clamped to [0, 1].
func RuleScore(n model.Normalized, e model.Enrichment) float64 {
	var s float64

	hc := e.Headcount()
	if hc >= 20 {
		s += 0.3
	}
	if hc >= 100 {
		s += 0.1
	}

	if slices.Contains(icpIndustries, strings.ToLower(strings.TrimSpace(e.Industry()))) {
		s += 0.2
	}

	title := strings.ToLower(n.Title)
	if slices.ContainsFunc(seniorTitles, func(t string) bool { return strings.Contains(title, t) }) {
		s += 0.2
	}

	if slices.Contains(focusCountry, strings.ToUpper(strings.TrimSpace(n.Country))) {
		s += 0.1
	}

	if domain := emailDomain(n.Email); domain != "" {
		if slices.ContainsFunc(freeMail, func(fm string) bool { return strings.HasSuffix(domain, fm) }) {
			s -= 0.4
		}
	}

	if len(e.TechStack()) > 0 {
		s += 0.1
	}

	return model.Clamp(s)
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

type scoreStage struct {
	advisor Advisor
	bounds  bounds
}

func (scoreStage) Name() string { return NodeScore }

// Run combines the rule score and the model score with equal weight. When
// the model fails the rule score stands alone.
func (s scoreStage) Run(ctx context.Context, l *model.Lead) {
	rule := RuleScore(l.Normalized, l.Enrichment)

	type verdict struct {
		score   float64
		reasons []string
	}
	v, err := resilience.Call(ctx, s.bounds.breaker(breakerAdvisor), s.bounds.timeout,
		func(ctx context.Context) (verdict, error) {
			score, reasons, err := s.advisor.Score(ctx, l, rule)
			return verdict{score, reasons}, err
		})
	if err != nil {
		l.AddError(NodeScore, err)
		l.SetScore(rule)
		l.ScoreReasons = []string{FallbackScoreReason}
		return
	}

	l.SetScore(0.5*rule + 0.5*model.Clamp(v.score))
	if v.reasons == nil {
		v.reasons = []string{}
	}
	l.ScoreReasons = v.reasons
}
