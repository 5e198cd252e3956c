package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/store"
	"github.com/triptomat/trip-analyzer/internal/worker"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway for analysis requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pool := worker.NewPool(e.Runner, cfg.Worker.Concurrency, cfg.Worker.QueueDepth)
		go func() {
			if err := pool.Run(ctx); err != nil {
				zap.L().Error("worker pool stopped", zap.Error(err))
			}
		}()

		gw := &gateway{env: e, pool: pool}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/analyze", gw.handleAnalyze)
		r.Get("/jobs/{jobID}", gw.handleJobStatus)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// gateway handles ingestion: validation, cache short-circuit, dispatch.
type gateway struct {
	env  *env
	pool *worker.Pool
}

// analyzeRequest is the ingestion body. Either url or text is required.
type analyzeRequest struct {
	URL          string `json:"url"`
	Text         string `json:"text"`
	Overwrite    bool   `json:"overwrite"`
	WebhookToken string `json:"webhook_token"`
}

func (g *gateway) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": "invalid request body"})
		return
	}

	req.Text = strings.TrimSpace(req.Text)

	// Pasted text: skip the cache and scraping, go straight to analysis.
	if req.Text != "" {
		if len(req.Text) > cfg.Server.MaxTextChars {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("text too long (max %d characters)", cfg.Server.MaxTextChars),
			})
			return
		}
		job := textJob(req.Text)
		job.WebhookToken = req.WebhookToken
		g.dispatch(r.Context(), w, job)
		return
	}

	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "either url or text is required"})
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid url scheme, only http and https are allowed"})
		return
	}

	// Completed-job cache short-circuit.
	if !req.Overwrite {
		if rec, err := g.env.Store.Get(r.Context(), req.URL); err == nil && rec.Status == model.JobCompleted {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":          rec.Status,
				"url":             rec.URL,
				"source_metadata": rec.Metadata,
				"analysis":        rec.Result,
			})
			return
		}
	}

	job := urlJob(req.URL)
	job.WebhookToken = req.WebhookToken
	g.dispatch(r.Context(), w, job)
}

// dispatch marks the job processing and hands it to the pool.
func (g *gateway) dispatch(ctx context.Context, w http.ResponseWriter, job *model.Job) {
	if err := g.env.Store.MarkProcessing(ctx, job.URL, job.ID); err != nil {
		zap.L().Error("gateway: failed to record job", zap.String("url", job.URL), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record job"})
		return
	}

	if err := g.pool.Submit(job); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue full, retry later"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  string(model.JobProcessing),
		"job_id":  job.ID,
		"message": "job submitted",
	})
}

func (g *gateway) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	rec, err := g.env.Store.GetByJobID(r.Context(), jobID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		zap.L().Error("gateway: job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "job lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
