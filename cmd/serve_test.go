package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-router/internal/guard"
	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/pipeline"
	"github.com/sells-group/lead-router/internal/resilience"
)

func localGuard(t *testing.T) *guard.Guard {
	t.Helper()
	g, err := guard.New(context.Background(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func postLead(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/lead", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	br := resilience.NewBreakers(resilience.DefaultBreakerConfig())
	br.Get("crm")
	h := buildRouter(&mockSubmitter{}, localGuard(t), br, []string{"*"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body struct {
		Status    string            `json:"status"`
		GuardTier string            `json:"guard_tier"`
		Breakers  map[string]string `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, string(guard.TierLocal), body.GuardTier)
	assert.Equal(t, map[string]string{"crm": "closed"}, body.Breakers)
}

func TestRouter_WebhookLead(t *testing.T) {
	score := 0.72
	tests := []struct {
		name     string
		body     string
		resp     *intake.Response
		err      error
		wantCode int
		wantKey  string
		wantVal  string
	}{
		{
			name:     "processed",
			body:     `{"email":"jane@acme.com","company":"Acme","full_name":"Jane Doe"}`,
			resp:     &intake.Response{Status: intake.StatusProcessed, Key: "jane@acme.com", Score: &score},
			wantCode: http.StatusOK,
			wantKey:  "status",
			wantVal:  intake.StatusProcessed,
		},
		{
			name:     "duplicate",
			body:     `{"event_id":"evt-1"}`,
			resp:     &intake.Response{Status: intake.StatusDuplicate, Message: "Lead already processed", Key: "evt-1"},
			wantCode: http.StatusOK,
			wantKey:  "message",
			wantVal:  "Lead already processed",
		},
		{
			name:     "pipeline failure",
			body:     `{"email":"a@b.com"}`,
			err:      fmt.Errorf("%w: %w", intake.ErrPipeline, &pipeline.PipelineError{Node: "score", Err: errors.New("boom")}),
			wantCode: http.StatusInternalServerError,
			wantKey:  "node",
			wantVal:  "score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSubmitter{}
			if tt.resp != nil {
				svc.On("Submit", mock.Anything, mock.Anything).Return(tt.resp, nil)
			} else {
				svc.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rr := postLead(t, buildRouter(svc, localGuard(t), nil, []string{"*"}), tt.body)
			assert.Equal(t, tt.wantCode, rr.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantVal, body[tt.wantKey])
			svc.AssertExpectations(t)
		})
	}
}

func TestRouter_WebhookLead_BadJSON(t *testing.T) {
	svc := &mockSubmitter{}
	h := buildRouter(svc, localGuard(t), nil, []string{"*"})

	for _, body := range []string{`{not json`, `null`, `[1,2]`} {
		rr := postLead(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.Contains(t, rr.Body.String(), "invalid JSON payload")
	}
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRouter_ReleaseKey(t *testing.T) {
	ctx := context.Background()
	g := localGuard(t)
	require.True(t, g.Admit(ctx, "evt-9", time.Hour))

	h := buildRouter(&mockSubmitter{}, g, nil, []string{"*"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/idempotency/evt-9", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, g.Admit(ctx, "evt-9", time.Hour))
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := buildRouter(&mockSubmitter{}, localGuard(t), nil, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/webhooks/lead", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_EndToEndDuplicate(t *testing.T) {
	offlineConfig(t)
	env, err := initEngine(context.Background(), "serve")
	require.NoError(t, err)
	defer env.Close()

	h := buildRouter(env.Intake, env.Guard, env.Breakers, cfg.Server.CORSOrigins)
	body := `{"event_id":"evt-123","email":"jane@acme.com","company":"Acme","full_name":"Jane Doe","country":"US"}`

	first := postLead(t, h, body)
	require.Equal(t, http.StatusOK, first.Code)
	var resp1 map[string]any
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp1))
	assert.Equal(t, intake.StatusProcessed, resp1["status"])
	assert.NotEmpty(t, resp1["run_id"])

	second := postLead(t, h, body)
	require.Equal(t, http.StatusOK, second.Code)
	var resp2 map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp2))
	assert.Equal(t, intake.StatusDuplicate, resp2["status"])
	assert.Equal(t, "evt-123", resp2["idempotency_key"])
}
