// Package server exposes search, validation and rule set management over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dreamerjackson/bookcrawler/aggregate"
	"github.com/dreamerjackson/bookcrawler/auth"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/dreamerjackson/bookcrawler/sourcestore"
	"github.com/dreamerjackson/bookcrawler/validator"
	"github.com/dreamerjackson/bookcrawler/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxImportSize = 4 << 20

type Option func(opts *options)

type options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Token       string
	Coordinator *aggregate.Coordinator
	Validator   *validator.Validator
}

var defaultOptions = options{
	Logger: zap.NewNop(),
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.Metrics = m
	}
}

// WithToken requires a bearer token on every mutating endpoint.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.Token = token
	}
}

func WithCoordinator(c *aggregate.Coordinator) Option {
	return func(opts *options) {
		opts.Coordinator = c
	}
}

func WithValidator(v *validator.Validator) Option {
	return func(opts *options) {
		opts.Validator = v
	}
}

type Server struct {
	options
	store sourcestore.Store
}

func New(store sourcestore.Store, opts ...Option) *Server {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Coordinator == nil {
		options.Coordinator = aggregate.New(aggregate.WithLogger(options.Logger), aggregate.WithMetrics(options.Metrics))
	}
	if options.Validator == nil {
		options.Validator = validator.New(validator.WithLogger(options.Logger), validator.WithMetrics(options.Metrics))
	}

	return &Server{options: options, store: store}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequest)

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.Get())
	})
	if s.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/sources", s.handleList)
		r.Get("/sources/export", s.handleExport)

		r.Group(func(r chi.Router) {
			r.Use(auth.NewAuthWrapper(s.Token))
			r.Post("/sources", s.handleImport)
			r.Put("/sources/{id}/enabled", s.handleEnabled)
			r.Delete("/sources/{id}", s.handleRemove)
			r.Post("/sources/{id}/test", s.handleTest)
		})
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("http server started", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	sets, err := s.store.Enabled(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	results, err := s.Coordinator.Search(r.Context(), keyword, sets)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	data, err := source.EncodeJSON(sets)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="booksources.json"`)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		s.fail(w, err)
		return
	}
	sets, err := source.Decode(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := sourcestore.Import(r.Context(), s.store, sets)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := s.id(w, r)
	if !ok {
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		http.Error(w, `body must be {"enabled": true|false}`, http.StatusBadRequest)
		return
	}

	if err := s.store.SetEnabled(r.Context(), id, *body.Enabled); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.id(w, r)
	if !ok {
		return
	}
	if err := s.store.Remove(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.id(w, r)
	if !ok {
		return
	}
	rs, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Validator.Validate(r.Context(), rs))
}

func (s *Server) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, sourcestore.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, source.ErrImportValidation), errors.Is(err, aggregate.ErrEmptyKeyword):
		code = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
