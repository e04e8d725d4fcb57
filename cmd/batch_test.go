package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/leadfile"
)

func records(emails ...string) []leadfile.Record {
	out := make([]leadfile.Record, len(emails))
	for i, e := range emails {
		out[i] = leadfile.Record{Line: i + 2, Payload: map[string]any{"email": e}}
	}
	return out
}

func TestProcessBatch_Empty(t *testing.T) {
	sum, err := processBatch(context.Background(), nil, 4, func(context.Context, map[string]any) (*intake.Response, error) {
		t.Fatal("submit should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, batchSummary{}, sum)
}

func TestProcessBatch_CountsOutcomes(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}

	submit := func(_ context.Context, payload map[string]any) (*intake.Response, error) {
		email := payload["email"].(string)
		if email == "bad@x.com" {
			return nil, errors.New("pipeline exploded")
		}
		mu.Lock()
		defer mu.Unlock()
		if seen[email] {
			return &intake.Response{Status: intake.StatusDuplicate, Key: email}, nil
		}
		seen[email] = true
		score := 0.5
		return &intake.Response{Status: intake.StatusProcessed, Key: email, Score: &score}, nil
	}

	sum, err := processBatch(context.Background(),
		records("a@x.com", "b@x.com", "a@x.com", "bad@x.com", "c@x.com"), 3, submit)
	require.NoError(t, err)
	assert.Equal(t, batchSummary{Processed: 3, Duplicates: 1, Failed: 1}, sum)
}

func TestProcessBatch_OfflineEngine(t *testing.T) {
	offlineConfig(t)
	env, err := initEngine(context.Background(), "batch")
	require.NoError(t, err)
	defer env.Close()

	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Email,Company,Full Name,Country\n"+
			"jane@acme.com,Acme,Jane Doe,US\n"+
			"bob@beta.io,Beta,Bob Smith,CA\n"+
			"jane@acme.com,Acme,Jane Doe,US\n",
	), 0o644))

	recs, err := leadfile.Read(context.Background(), path, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	sum, err := processBatch(context.Background(), recs, 1, env.Intake.Submit)
	require.NoError(t, err)
	assert.Equal(t, batchSummary{Processed: 2, Duplicates: 1}, sum)
}
