package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/advisor"
	"github.com/sells-group/lead-router/internal/crm"
	"github.com/sells-group/lead-router/internal/enrich"
	"github.com/sells-group/lead-router/internal/guard"
	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/pipeline"
	"github.com/sells-group/lead-router/internal/resilience"
	"github.com/sells-group/lead-router/internal/routing"
	"github.com/sells-group/lead-router/internal/similarity"
	"github.com/sells-group/lead-router/internal/store"
	anthropicpkg "github.com/sells-group/lead-router/pkg/anthropic"
	"github.com/sells-group/lead-router/pkg/clearbit"
	"github.com/sells-group/lead-router/pkg/notion"
	sfpkg "github.com/sells-group/lead-router/pkg/salesforce"
	"github.com/sells-group/lead-router/pkg/slack"
)

// engineEnv holds the guard, collaborators and intake service needed by the
// serve/run/batch commands.
type engineEnv struct {
	Guard         *guard.Guard
	Breakers      *resilience.Breakers
	Pipeline      *pipeline.Pipeline
	Intake        *intake.Service
	Routing       routing.Table
	RoutingSource routing.Source
}

// Close releases resources held by the engine environment.
func (e *engineEnv) Close() {
	if e.Guard != nil {
		_ = e.Guard.Close()
	}
}

// initEngine validates config for mode, selects the guard tier, builds every
// collaborator (offline variants when credentials are absent) and wires the
// intake service. Callers should defer env.Close().
func initEngine(ctx context.Context, mode string) (*engineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	g, err := initGuard(ctx)
	if err != nil {
		return nil, err
	}

	table, source := initRouting(ctx)

	crmClient, err := initCRM()
	if err != nil {
		_ = g.Close()
		return nil, err
	}

	sim, err := initSimilarity()
	if err != nil {
		_ = g.Close()
		return nil, err
	}

	breakers := resilience.NewBreakers(breakerConfig())
	p, err := pipeline.New(pipeline.Deps{
		Enricher:   initEnricher(),
		CRM:        crmClient,
		Similarity: sim,
		Advisor:    initAdvisor(),
		Routing:    table,
		Breakers:   breakers,
		Timeout:    time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second,
	})
	if err != nil {
		_ = g.Close()
		return nil, err
	}

	zap.L().Info("engine ready",
		zap.String("guard_tier", string(g.Tier())),
		zap.String("routing_source", string(source)),
		zap.Int("territories", len(table.Countries())),
	)

	return &engineEnv{
		Guard:         g,
		Breakers:      breakers,
		Pipeline:      p,
		Intake:        intake.New(g, p, initNotifier(), cfg.Guard.TTL()),
		Routing:       table,
		RoutingSource: source,
	}, nil
}

// initGuard opens the configured shared store. An open failure is not fatal:
// the guard falls back to the process-local tier.
func initGuard(ctx context.Context) (*guard.Guard, error) {
	if cfg.Guard.Driver == store.DriverMemory {
		return guard.New(ctx, nil, nil)
	}

	primary, err := store.New(ctx, store.Options{
		Driver: cfg.Guard.Driver,
		URL:    cfg.Guard.URL,
		Table:  cfg.Guard.Table,
	})
	if err != nil {
		zap.L().Warn("guard store unavailable", zap.String("driver", cfg.Guard.Driver), zap.Error(err))
		primary = nil
	}
	return guard.New(ctx, primary, nil)
}

func initRouting(ctx context.Context) (routing.Table, routing.Source) {
	opts := routing.Options{File: cfg.Routing.File, NotionDB: cfg.Routing.NotionDB}
	if cfg.Notion.Token != "" && cfg.Routing.NotionDB != "" {
		opts.Notion = notion.NewClient(cfg.Notion.Token)
	}
	return routing.Load(ctx, opts)
}

func initEnricher() pipeline.Enricher {
	if cfg.Clearbit.Key == "" {
		zap.L().Warn("LEADROUTER_CLEARBIT_KEY not set, using offline enrichment")
		return enrich.Offline{}
	}
	opts := []clearbit.Option{clearbit.WithRateLimit(cfg.Clearbit.RateLimit)}
	if cfg.Clearbit.BaseURL != "" {
		opts = append(opts, clearbit.WithBaseURL(cfg.Clearbit.BaseURL))
	}
	return enrich.NewClearbit(clearbit.NewClient(cfg.Clearbit.Key, opts...))
}

func initCRM() (pipeline.CRM, error) {
	if cfg.Salesforce.ClientID == "" {
		zap.L().Warn("LEADROUTER_SALESFORCE_CLIENT_ID not set, using offline CRM")
		return crm.Offline{}, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}
	sf, err := sfpkg.Connect(cfg.Salesforce.LoginURL, cfg.Salesforce.Username, cfg.Salesforce.ClientID, string(pemData),
		time.Duration(cfg.Pipeline.TimeoutSecs)*time.Second)
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}
	return crm.NewSalesforce(sf), nil
}

func initSimilarity() (pipeline.Similarity, error) {
	if cfg.Weaviate.Host == "" {
		zap.L().Warn("LEADROUTER_WEAVIATE_HOST not set, using canned similar accounts")
		return similarity.Static{}, nil
	}
	return newWeaviate()
}

func newWeaviate() (*similarity.Weaviate, error) {
	w, err := similarity.NewWeaviate(similarity.Config{
		Host:   cfg.Weaviate.Host,
		Scheme: cfg.Weaviate.Scheme,
		APIKey: cfg.Weaviate.APIKey,
		Class:  cfg.Weaviate.Class,
		TopK:   cfg.Weaviate.TopK,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init weaviate")
	}
	return w, nil
}

func initAdvisor() pipeline.Advisor {
	switch cfg.Advisor.Provider {
	case "anthropic":
		if cfg.Anthropic.Key != "" {
			return advisor.NewAnthropic(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens))
		}
		zap.L().Warn("LEADROUTER_ANTHROPIC_KEY not set, using heuristic advisor")
	case "openai":
		if cfg.OpenAI.Key != "" {
			return advisor.NewOpenAI(cfg.OpenAI.Key, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		zap.L().Warn("LEADROUTER_OPENAI_KEY not set, using heuristic advisor")
	}
	return advisor.Heuristic{}
}

func initNotifier() intake.Notifier {
	if cfg.Slack.WebhookURL == "" {
		zap.L().Warn("LEADROUTER_SLACK_WEBHOOK_URL not set, notifications are logged only")
		return intake.Offline{}
	}
	return intake.NewSlack(slack.NewWebhook(cfg.Slack.WebhookURL), cfg.Slack.Channel, "")
}

func breakerConfig() resilience.BreakerConfig {
	bc := resilience.DefaultBreakerConfig()
	if cfg.Pipeline.BreakerThreshold > 0 {
		bc.Threshold = cfg.Pipeline.BreakerThreshold
	}
	if cfg.Pipeline.BreakerResetSecs > 0 {
		bc.ResetAfter = time.Duration(cfg.Pipeline.BreakerResetSecs) * time.Second
	}
	return bc
}
