package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/stash/pkg/httputil"
	"github.com/platinummonkey/stash/pkg/observability"
	"github.com/platinummonkey/stash/pkg/storage/filestore"
)

const maxValueBytes = 1 << 20 // 1 MiB per stored value

// Server serves the state admin API over an aggregated file store.
type Server struct {
	store    *filestore.Store
	router   *mux.Router
	logger   *logrus.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger. The default logs JSON to stderr.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables the /metrics endpoint and request instrumentation.
func WithMetrics(m *observability.Metrics, registry *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.metrics = m
		s.registry = registry
	}
}

// NewServer creates the admin API server over store.
func NewServer(store *filestore.Store, opts ...ServerOption) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	s := &Server{
		store:  store,
		router: mux.NewRouter(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health).Methods("GET")

	s.router.HandleFunc("/v1/namespaces", s.listNamespaces).Methods("GET")
	s.router.HandleFunc("/v1/state/{namespace}", s.getNamespace).Methods("GET")
	s.router.HandleFunc("/v1/state/{namespace}/{key}", s.getValue).Methods("GET")
	s.router.HandleFunc("/v1/state/{namespace}/{key}", s.putValue).Methods("PUT")
	s.router.HandleFunc("/v1/state/{namespace}/{key}", s.deleteValue).Methods("DELETE")
	s.router.HandleFunc("/v1/flush", s.flush).Methods("POST")

	if s.registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.registry)).Methods("GET")
	}
}

// Handler returns the server's handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(maxValueBytes),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}

	handler := httputil.Chain(middlewares...)(s.router)
	return otelhttp.NewHandler(handler, "stash-api")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

func (s *Server) listNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces := s.store.Namespaces()
	if namespaces == nil {
		namespaces = []string{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"namespaces": namespaces})
}

func (s *Server) getNamespace(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)
	record := s.store.GetState(vars["namespace"])
	httputil.WriteSuccess(w, record)
}

func (s *Server) getValue(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)
	raw, ok := s.store.GetState(vars["namespace"])[vars["key"]]
	if !ok {
		httputil.WriteNotFoundError(w, fmt.Sprintf("no value for %s/%s", vars["namespace"], vars["key"]))
		return
	}
	httputil.WriteRawJSON(w, http.StatusOK, raw)
}

func (s *Server) putValue(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		httputil.WriteBadRequest(w, "request body must be valid JSON")
		return
	}

	s.store.SetState(vars["namespace"], vars["key"], body)
	httputil.WriteNoContent(w)
}

func (s *Server) deleteValue(w http.ResponseWriter, r *http.Request) {
	vars := httputil.GetPathVars(r)
	s.store.SetState(vars["namespace"], vars["key"], nil)
	httputil.WriteNoContent(w)
}

func (s *Server) flush(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Flush(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "flushed"})
}
