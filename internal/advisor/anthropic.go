package advisor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-router/internal/model"
	anthropicpkg "github.com/sells-group/lead-router/pkg/anthropic"
)

const (
	scoreTemperature   = 0.1
	summaryTemperature = 0.3
)

// Anthropic scores and summarizes with Claude.
type Anthropic struct {
	client    anthropicpkg.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates a Claude-backed advisor.
func NewAnthropic(c anthropicpkg.Client, model string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{client: c, model: model, maxTokens: maxTokens}
}

// Score asks the model for a score and reasons given the rule-based hint.
func (a *Anthropic) Score(ctx context.Context, l *model.Lead, hint float64) (float64, []string, error) {
	text, err := a.complete(ctx, ScoringRubric, ScorePrompt(l, hint), scoreTemperature, "score")
	if err != nil {
		return 0, nil, err
	}
	return ParseScore(text)
}

// Summarize asks the model for an account executive brief.
func (a *Anthropic) Summarize(ctx context.Context, l *model.Lead, similar []model.SimilarAccount) (string, error) {
	text, err := a.complete(ctx, SummaryRubric, SummaryPrompt(l, similar), summaryTemperature, "summarize")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.New("advisor: empty summary")
	}
	return strings.TrimSpace(text), nil
}

func (a *Anthropic) complete(ctx context.Context, system, prompt string, temp float64, task string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropicpkg.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      system,
		Messages:    []anthropicpkg.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrapf(err, "advisor: %s", task)
	}
	resp.Usage.LogCost(a.model, task)
	return resp.Text(), nil
}
