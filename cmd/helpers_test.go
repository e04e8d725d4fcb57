package main

import (
	"path/filepath"
	"testing"

	"github.com/sells-group/lead-router/internal/config"
)

// offlineConfig installs a config with no credentials so every collaborator
// takes its offline variant.
func offlineConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Guard:    config.GuardConfig{Driver: "memory", TTLSecs: 3600},
		Routing:  config.RoutingConfig{File: filepath.Join(t.TempDir(), "missing.yaml")},
		Advisor:  config.AdvisorConfig{Provider: "heuristic"},
		Slack:    config.SlackConfig{Channel: "#sales-leads"},
		Pipeline: config.PipelineConfig{TimeoutSecs: 5, BreakerThreshold: 3, BreakerResetSecs: 10},
		Batch:    config.BatchConfig{Concurrency: 4},
		Server:   config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}},
		Weaviate: config.WeaviateConfig{Scheme: "http", Class: "AccountOutcome", TopK: 3},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
}
