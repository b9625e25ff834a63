// Package server exposes the request dispatcher over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/dispatch"
	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/render"
	"github.com/ppiankov/wikigap/internal/store"
)

const maxRequestBytes = 1 << 20

// Analyzer runs an interactive analysis of one article URL
type Analyzer interface {
	AnalyzeURL(ctx context.Context, rawURL string) (*model.Report, error)
}

// Options wires the server. Analyzer is optional; without it /analyze is not mounted.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Manager    *store.Manager
	Analyzer   Analyzer
	Logger     *zap.Logger
}

// Server is the HTTP surface of wikigap
type Server struct {
	dispatcher *dispatch.Dispatcher
	manager    *store.Manager
	analyzer   Analyzer
	logger     *zap.Logger
	router     chi.Router
	now        func() time.Time
}

// New creates a server and mounts its routes
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		dispatcher: opts.Dispatcher,
		manager:    opts.Manager,
		analyzer:   opts.Analyzer,
		logger:     opts.Logger,
		now:        time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/dispatch", s.handleDispatch)
	r.Get("/export", s.handleExport)
	if s.analyzer != nil {
		r.Post("/analyze", s.handleAnalyze)
	}

	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": model.Version})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Success: false, Error: "invalid request body"})
		return
	}
	if req.Source == "" {
		req.Source = r.Header.Get("Referer")
	}

	resp := s.dispatcher.Dispatch(r.Context(), req)
	status := http.StatusOK
	if !resp.Success && resp.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt((resp.RetryAfter+999)/1000, 10))
		if resp.RateLimited {
			status = http.StatusTooManyRequests
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.manager.Export(r.Context(), model.Version)
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dispatch.Response{Success: false, Error: err.Error()})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, render.ExportFilename(s.now())))
	writeJSON(w, http.StatusOK, artifact)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	Report  *model.Report  `json:"report"`
	Patches []render.Patch `json:"patches"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Success: false, Error: "url is required"})
		return
	}

	report, err := s.analyzer.AnalyzeURL(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("analysis failed", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, dispatch.Response{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Report:  report,
		Patches: render.Panel(report.Result, s.now()),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
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
