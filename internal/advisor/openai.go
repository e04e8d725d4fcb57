package advisor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
)

// OpenAI scores and summarizes with the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-backed advisor. baseURL is optional and points
// the client at a compatible endpoint.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// Score asks the model for a JSON score and reasons.
func (o *OpenAI) Score(ctx context.Context, l *model.Lead, hint float64) (float64, []string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ScoringRubric},
			{Role: openai.ChatMessageRoleUser, Content: ScorePrompt(l, hint)},
		},
		Temperature:         scoreTemperature,
		MaxCompletionTokens: 500,
		ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	text, err := o.complete(ctx, req, "score")
	if err != nil {
		return 0, nil, err
	}
	return ParseScore(text)
}

// Summarize asks the model for an account executive brief.
func (o *OpenAI) Summarize(ctx context.Context, l *model.Lead, similar []model.SimilarAccount) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SummaryRubric},
			{Role: openai.ChatMessageRoleUser, Content: SummaryPrompt(l, similar)},
		},
		Temperature:         summaryTemperature,
		MaxCompletionTokens: 800,
	}
	text, err := o.complete(ctx, req, "summarize")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.New("advisor: empty summary")
	}
	return strings.TrimSpace(text), nil
}

func (o *OpenAI) complete(ctx context.Context, req openai.ChatCompletionRequest, task string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", eris.Wrapf(err, "advisor: %s", task)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Errorf("advisor: %s returned no choices", task)
	}
	zap.L().Debug("advisor: openai usage",
		zap.String("model", o.model),
		zap.String("task", task),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
