package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/guard"
	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/pipeline"
)

const maxLeadBodyBytes = 1 << 20

var servePort int

// submitter is the intake operation the webhook handler drives.
type submitter interface {
	Submit(ctx context.Context, payload map[string]any) (*intake.Response, error)
}

// keyGuard is the subset of the idempotency guard exposed over HTTP.
type keyGuard interface {
	Tier() guard.Tier
	Release(ctx context.Context, key string) error
}

// breakerSnapshot reports circuit breaker states by collaborator name.
type breakerSnapshot interface {
	Snapshot() map[string]string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead intake webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEngine(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env.Intake, env.Guard, env.Breakers, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the intake, health and admin routes.
func buildRouter(svc submitter, g keyGuard, breakers breakerSnapshot, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if g != nil {
			body["guard_tier"] = g.Tier()
		}
		if breakers != nil {
			body["breakers"] = breakers.Snapshot()
		} else {
			body["breakers"] = map[string]string{}
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Post("/webhooks/lead", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
			return
		}

		resp, err := svc.Submit(r.Context(), payload)
		if err != nil {
			body := map[string]string{"error": "workflow processing failed", "detail": err.Error()}
			var pe *pipeline.PipelineError
			if errors.As(err, &pe) {
				body["node"] = pe.Node
			}
			writeJSON(w, http.StatusInternalServerError, body)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Delete("/admin/idempotency/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if err := g.Release(r.Context(), key); err != nil {
			zap.L().Error("release idempotency key failed", zap.String("key", key), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
