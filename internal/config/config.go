package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Guard      GuardConfig      `yaml:"guard" mapstructure:"guard"`
	Routing    RoutingConfig    `yaml:"routing" mapstructure:"routing"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Clearbit   ClearbitConfig   `yaml:"clearbit" mapstructure:"clearbit"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Weaviate   WeaviateConfig   `yaml:"weaviate" mapstructure:"weaviate"`
	Advisor    AdvisorConfig    `yaml:"advisor" mapstructure:"advisor"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Slack      SlackConfig      `yaml:"slack" mapstructure:"slack"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GuardConfig configures the idempotency guard backend.
type GuardConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"`
	URL     string `yaml:"url" mapstructure:"url"`
	TTLSecs int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	Table   string `yaml:"table" mapstructure:"table"`
}

// TTL returns the admission window as a duration.
func (g GuardConfig) TTL() time.Duration {
	return time.Duration(g.TTLSecs) * time.Second
}

// RoutingConfig points at the territory routing table source.
type RoutingConfig struct {
	File     string `yaml:"file" mapstructure:"file"`
	NotionDB string `yaml:"notion_db" mapstructure:"notion_db"`
}

// NotionConfig holds Notion API credentials.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// ClearbitConfig holds enrichment provider settings.
type ClearbitConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// WeaviateConfig holds vector store settings for similar-account lookup.
type WeaviateConfig struct {
	Host   string `yaml:"host" mapstructure:"host"`
	Scheme string `yaml:"scheme" mapstructure:"scheme"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Class  string `yaml:"class" mapstructure:"class"`
	TopK   int    `yaml:"top_k" mapstructure:"top_k"`
}

// AdvisorConfig selects the language model used for scoring and summaries.
type AdvisorConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SlackConfig holds the incoming webhook used for rep notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
}

// PipelineConfig configures per-collaborator call bounds.
type PipelineConfig struct {
	TimeoutSecs      int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	guardDrivers     = []string{"redis", "postgres", "sqlite", "memory"}
	advisorProviders = []string{"anthropic", "openai", "heuristic"}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can bind it on Unmarshal.
	v.SetDefault("guard.driver", "redis")
	v.SetDefault("guard.url", "redis://localhost:6379/0")
	v.SetDefault("guard.ttl_secs", 86400)
	v.SetDefault("guard.table", "idempotency_keys")
	v.SetDefault("routing.file", "config/routing_rules.yaml")
	v.SetDefault("routing.notion_db", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("clearbit.key", "")
	v.SetDefault("clearbit.base_url", "")
	v.SetDefault("clearbit.rate_limit", 10)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("weaviate.host", "")
	v.SetDefault("weaviate.scheme", "http")
	v.SetDefault("weaviate.api_key", "")
	v.SetDefault("weaviate.class", "AccountOutcome")
	v.SetDefault("weaviate.top_k", 3)
	v.SetDefault("advisor.provider", "anthropic")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", "#sales-leads")
	v.SetDefault("pipeline.timeout_secs", 20)
	v.SetDefault("pipeline.breaker_threshold", 5)
	v.SetDefault("pipeline.breaker_reset_secs", 30)
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode.
// Base checks apply to every mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	if !slices.Contains(guardDrivers, c.Guard.Driver) {
		errs = append(errs, fmt.Sprintf("guard.driver must be one of %s, got %q", strings.Join(guardDrivers, ", "), c.Guard.Driver))
	}
	if c.Guard.TTLSecs <= 0 {
		errs = append(errs, "guard.ttl_secs must be > 0")
	}
	if !slices.Contains(advisorProviders, c.Advisor.Provider) {
		errs = append(errs, fmt.Sprintf("advisor.provider must be one of %s, got %q", strings.Join(advisorProviders, ", "), c.Advisor.Provider))
	}
	if c.Pipeline.TimeoutSecs <= 0 {
		errs = append(errs, "pipeline.timeout_secs must be > 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50 {
			errs = append(errs, "batch.concurrency must be between 1 and 50")
		}
	case "outcome":
		if c.Weaviate.Host == "" {
			errs = append(errs, "weaviate.host is required")
		}
	case "run", "guard", "routing":
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
