// Package api is the HTTP surface of the search widget: the JSON search
// endpoints, health and version probes, prometheus metrics and the bundled
// demo page.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/product"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes         = 64 << 10
	maxQueriesPerRequest = 10
	defaultSearchTimeout = 25 * time.Second
)

// Searcher answers a batch of queries with one ranked list. *search.Service
// is the production implementation.
type Searcher interface {
	Search(ctx context.Context, queries []product.Query) ([]product.Product, error)
}

type Options struct {
	MaxResults    int
	CORSOrigins   []string
	RateLimitRPS  float64
	RateBurst     int
	Frontend      bool
	SearchTimeout time.Duration
	// Registerer receives the HTTP metrics, Gatherer backs /metrics. Both
	// default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type Server struct {
	searcher Searcher
	opts     Options
	logger   zerolog.Logger
	metrics  *httpMetrics
	limiter  *Limiter
	router   *mux.Router
}

func New(searcher Searcher, opts Options, logger zerolog.Logger) *Server {
	if opts.MaxResults <= 0 || opts.MaxResults > product.MaxResults {
		opts.MaxResults = product.MaxResults
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = defaultSearchTimeout
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		searcher: searcher,
		opts:     opts,
		logger:   logger,
		metrics:  newHTTPMetrics(opts.Registerer),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = NewLimiter(opts.RateLimitRPS, opts.RateBurst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/search", s.handleSearchPost).Methods(http.MethodPost)
	r.HandleFunc("/api/search", s.handleSearchGet).Methods(http.MethodGet)
	r.HandleFunc("/search", s.handleSearchGet).Methods(http.MethodGet)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler returns the router wrapped in the middleware chain, outermost
// first: recover, request id, access log, metrics, CORS, rate limit.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.limiter != nil {
		h = s.rateLimit(h)
	}
	h = cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	}).Handler(h)
	h = s.instrument(h)
	h = accessLog(h)
	h = requestID(s.logger, h)
	h = s.recoverer(h)
	return h
}
