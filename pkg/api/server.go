package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

const defaultMaxBodyBytes = 1 << 20

// Server serves the tree, insect and association endpoints.
type Server struct {
	repo    storage.Repository
	router  *mux.Router
	handler http.Handler
	logger  *logrus.Logger
	errors  *ErrorResponder

	metrics      *observability.Metrics
	middleware   []mux.MiddlewareFunc
	corsOrigins  []string
	timeout      time.Duration
	maxBodyBytes int64
	tracing      bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records per-route request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMiddleware installs extra router middleware, e.g. rate limiting.
func WithMiddleware(mw ...mux.MiddlewareFunc) Option {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithCORS allows cross-origin requests from origins. "*" allows any.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRequestTimeout bounds every request context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// WithTracing wraps the handler with OpenTelemetry HTTP instrumentation.
func WithTracing(enabled bool) Option {
	return func(s *Server) {
		s.tracing = enabled
	}
}

// NewServer creates a new API server backed by repo. The caller keeps
// ownership of repo and closes it on shutdown.
func NewServer(repo storage.Repository, logger *logrus.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		repo:         repo,
		router:       mux.NewRouter(),
		logger:       logger,
		errors:       NewErrorResponder(logger),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.handler = s.buildHandler()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.router.Use(s.middleware...)

	// Association routes
	s.router.HandleFunc("/trees-insects", s.listTreesWithInsects).Methods("GET")
	s.router.HandleFunc("/insects-trees", s.listInsectsWithTrees).Methods("GET")
	s.router.HandleFunc("/associate-tree-insect", s.associateTreeInsect).Methods("POST")

	// Tree routes
	s.router.HandleFunc("/trees", s.listTrees).Methods("GET")
	s.router.HandleFunc("/trees", s.createTree).Methods("POST")
	s.router.HandleFunc("/trees/search/{value}", s.searchTrees).Methods("GET")
	s.router.HandleFunc("/trees/{id}", s.getTree).Methods("GET")
	s.router.HandleFunc("/trees/{id}", s.updateTree).Methods("PUT")
	s.router.HandleFunc("/trees/{id}", s.deleteTree).Methods("DELETE")

	// Insect routes
	s.router.HandleFunc("/insects", s.listInsects).Methods("GET")
	s.router.HandleFunc("/insects", s.createInsect).Methods("POST")
	s.router.HandleFunc("/insects/search/{value}", s.searchInsects).Methods("GET")
	s.router.HandleFunc("/insects/{id}", s.getInsect).Methods("GET")
	s.router.HandleFunc("/insects/{id}", s.updateInsect).Methods("PUT")
	s.router.HandleFunc("/insects/{id}", s.deleteInsect).Methods("DELETE")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, NotFound("Could not find "+r.URL.Path, "Route not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := Invalid("Method "+r.Method+" not allowed", "Unsupported method for "+r.URL.Path)
		e.Code = http.StatusMethodNotAllowed
		s.fail(w, r, e)
	})
}

func (s *Server) buildHandler() http.Handler {
	chain := []httputil.Middleware{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
	}
	if len(s.corsOrigins) > 0 {
		chain = append(chain, httputil.CORSMiddleware(s.corsOrigins))
	}
	chain = append(chain,
		httputil.TimeoutMiddleware(s.timeout),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	)

	h := httputil.Chain(chain...)(s.router)
	if s.tracing {
		h = otelhttp.NewHandler(h, "grove",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
	return h
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router for route inspection.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, e *APIError) {
	s.errors.Respond(w, r, e)
}
