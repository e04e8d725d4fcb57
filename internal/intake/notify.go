package intake

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/model"
	"github.com/sells-group/lead-router/pkg/slack"
)

// Kind selects the notification template.
type Kind string

// Notification kinds.
const (
	KindStandard     Kind = "standard"
	KindHighPriority Kind = "high_priority"
)

// DefaultAlertChannel receives high-priority alerts.
const DefaultAlertChannel = "#high-priority-leads"

// Notifier tells sales about a processed lead and returns the message id.
type Notifier interface {
	Notify(ctx context.Context, l *model.Lead, kind Kind) (string, error)
}

// Slack posts lead notifications through a Slack webhook.
type Slack struct {
	client       slack.Client
	channel      string
	alertChannel string
}

// NewSlack creates a Slack notifier. Empty channels fall back to the webhook
// default and DefaultAlertChannel.
func NewSlack(c slack.Client, channel, alertChannel string) *Slack {
	if alertChannel == "" {
		alertChannel = DefaultAlertChannel
	}
	return &Slack{client: c, channel: channel, alertChannel: alertChannel}
}

// Notify posts a standard message or a high-priority alert.
func (s *Slack) Notify(ctx context.Context, l *model.Lead, kind Kind) (string, error) {
	msg := LeadMessage(l)
	msg.Channel = s.channel
	if kind == KindHighPriority {
		msg = AlertMessage(l)
		msg.Channel = s.alertChannel
	}
	return s.client.Post(ctx, msg)
}

// Offline logs notifications instead of sending them.
type Offline struct{}

// Notify logs the message text and returns a fixed id per kind.
func (Offline) Notify(_ context.Context, l *model.Lead, kind Kind) (string, error) {
	msg := LeadMessage(l)
	id := "mock_timestamp_123"
	if kind == KindHighPriority {
		msg = AlertMessage(l)
		id = "mock_alert_timestamp_456"
	}
	zap.L().Info("intake: offline notification",
		zap.String("lead_id", l.LeadID),
		zap.String("kind", string(kind)),
		zap.String("text", msg.Text),
	)
	return id, nil
}

func priority(score float64) (emoji, label string) {
	switch {
	case score >= 0.8:
		return "🚀", "HIGH"
	case score >= 0.6:
		return "✅", "MEDIUM"
	default:
		return "📧", "LOW"
	}
}

// LeadMessage builds the standard new-lead message.
func LeadMessage(l *model.Lead) slack.Message {
	n := l.Normalized
	emoji, label := priority(l.Score)
	owner := orDefault(l.OwnerValue(), "Unassigned")

	industry := orDefault(l.Enrichment.Industry(), "Unknown")
	size := "Unknown"
	if hc := l.Enrichment.Headcount(); hc > 0 {
		size = fmt.Sprint(hc)
	}

	blocks := []slack.Block{
		slack.Header(emoji + " New Lead Assigned"),
		slack.Fields(
			"*Name:*\n"+orDefault(n.FullName, "Unknown"),
			"*Company:*\n"+orDefault(n.Company, "Unknown"),
			"*Title:*\n"+orDefault(n.Title, "Unknown"),
			fmt.Sprintf("*Score:*\n%.2f/1.0 (%s)", l.Score, label),
		),
		slack.Fields(
			"*Industry:*\n"+industry,
			"*Size:*\n"+size+" employees",
			"*Country:*\n"+orDefault(n.Country, "Unknown"),
			"*Source:*\n"+orDefault(n.Source, "Unknown"),
		),
		slack.Section("*Assigned to:* " + owner),
	}

	if len(l.SimilarAccounts) > 0 {
		var lines []string
		for i, a := range l.SimilarAccounts {
			if i == 2 {
				break
			}
			lines = append(lines, fmt.Sprintf("• %s - %s: %s", a.Account, a.Outcome, a.Reason))
		}
		blocks = append(blocks, slack.Section("*Similar Accounts:*\n"+strings.Join(lines, "\n")))
	}
	if l.CRMRecordID != nil {
		blocks = append(blocks, slack.Section("*CRM record:* "+*l.CRMRecordID))
	}

	return slack.Message{
		Text:   fmt.Sprintf("%s New Lead: %s from %s", emoji, orDefault(n.FullName, "Unknown"), orDefault(n.Company, "Unknown")),
		Blocks: blocks,
	}
}

// AlertMessage builds the high-priority alert with an @here mention.
func AlertMessage(l *model.Lead) slack.Message {
	n := l.Normalized
	name, company := orDefault(n.FullName, "Unknown"), orDefault(n.Company, "Unknown")
	return slack.Message{
		Text: fmt.Sprintf("🚨 HIGH PRIORITY LEAD: %s from %s (Score: %.2f)", name, company, l.Score),
		Blocks: []slack.Block{
			slack.Header("🚨 HIGH PRIORITY LEAD ALERT"),
			slack.Section("<!here> New high-priority lead requires immediate attention!"),
			slack.Fields(
				"*Name:*\n"+name,
				"*Company:*\n"+company,
				fmt.Sprintf("*Score:*\n%.2f/1.0", l.Score),
				"*Owner:*\n"+orDefault(l.OwnerValue(), "Unassigned"),
			),
			slack.Section("*Next Action:* Schedule discovery call within 2 hours"),
		},
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
