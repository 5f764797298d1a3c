package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/cache"
	"github.com/vantage6/console/pkg/events"
	"github.com/vantage6/console/pkg/httputil"
	"github.com/vantage6/console/pkg/middleware"
	"github.com/vantage6/console/pkg/observability"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

// Searcher queries the audit trail. *audit.DBLogger satisfies it.
type Searcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

// Caches holds the read caches for the hot platform list endpoints. All
// fields may be nil (caching disabled).
type Caches struct {
	RuleCatalog    *cache.Store[[]permission.Rule]
	Organizations  *cache.Store[[]platform.Organization]
	Collaborations *cache.Store[[]platform.Collaboration]
	Nodes          *cache.Store[[]platform.Node]
}

// NewCaches builds the read caches.
func NewCaches(size int, ttl time.Duration, metrics *observability.Metrics) *Caches {
	return &Caches{
		RuleCatalog:    cache.New[[]permission.Rule]("rule_catalog", size, ttl, metrics),
		Organizations:  cache.New[[]platform.Organization]("organizations", size, ttl, metrics),
		Collaborations: cache.New[[]platform.Collaboration]("collaborations", size, ttl, metrics),
		Nodes:          cache.New[[]platform.Node]("nodes", size, ttl, metrics),
	}
}

// Nil-safe accessors so handlers can run with caching disabled entirely
// (nil *Caches) or per store.

func (c *Caches) ruleCache() *cache.Store[[]permission.Rule] {
	if c == nil {
		return nil
	}
	return c.RuleCatalog
}

func (c *Caches) orgCache() *cache.Store[[]platform.Organization] {
	if c == nil {
		return nil
	}
	return c.Organizations
}

func (c *Caches) collabCache() *cache.Store[[]platform.Collaboration] {
	if c == nil {
		return nil
	}
	return c.Collaborations
}

func (c *Caches) nodeCache() *cache.Store[[]platform.Node] {
	if c == nil {
		return nil
	}
	return c.Nodes
}

// PurgeAll drops every cached entry. Called after any mutation.
func (c *Caches) PurgeAll() {
	if c == nil {
		return
	}
	c.RuleCatalog.Purge()
	c.Organizations.Purge()
	c.Collaborations.Purge()
	c.Nodes.Purge()
}

// Config wires the server's collaborators.
type Config struct {
	Sessions *session.Manager
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Hub      *events.Hub

	// Auditor receives handler-level audit events. nil disables auditing.
	Auditor audit.Logger
	// Searcher serves the audit browser endpoint. nil disables it.
	Searcher Searcher

	// RateLimiter wraps every authenticated route. Satisfied by both
	// middleware.RateLimitMiddleware and the Redis-backed
	// middleware.DistributedRateLimitMiddleware; nil disables general rate
	// limiting (the login route keeps its own limiter either way).
	RateLimiter RateLimiter

	Caches         *Caches
	AllowedOrigins []string
}

// RateLimiter is the handler-wrapping surface both limiter middlewares
// share.
type RateLimiter interface {
	Handler(next http.Handler) http.Handler
}

// Server is the console HTTP API.
type Server struct {
	router   *mux.Router
	sessions *session.Manager
	logger   *observability.Logger
	metrics  *observability.Metrics
	hub      *events.Hub
	auditor  audit.Logger
	searcher Searcher
	limiter  RateLimiter
	caches   *Caches
	origins  []string
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg Config) *Server {
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	s := &Server{
		router:   mux.NewRouter(),
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		hub:      cfg.Hub,
		auditor:  auditor,
		searcher: cfg.Searcher,
		limiter:  cfg.RateLimiter,
		caches:   cfg.Caches,
		origins:  cfg.AllowedOrigins,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	sessionMW := middleware.NewSessionMiddleware(s.sessions, false)
	loginLimiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())

	// Login is the one route reachable without a session.
	s.router.Handle("/api/session", s.withLoginLimit(loginLimiter, http.HandlerFunc(s.login))).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(sessionMW.Handler)
	if s.limiter != nil {
		// after the session middleware so limits key on the user, not the IP
		api.Use(s.limiter.Handler)
	}

	// Session
	api.HandleFunc("/session", s.logout).Methods(http.MethodDelete)
	api.HandleFunc("/session/refresh", s.refresh).Methods(http.MethodPost)
	api.HandleFunc("/session/whoami", s.whoami).Methods(http.MethodGet)
	api.HandleFunc("/session/check", s.checkPermission).Methods(http.MethodPost)

	// Organizations
	api.HandleFunc("/organization", s.listOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/organization", s.createOrganization).Methods(http.MethodPost)
	api.HandleFunc("/organization/{id:[0-9]+}", s.getOrganization).Methods(http.MethodGet)
	api.HandleFunc("/organization/{id:[0-9]+}", s.updateOrganization).Methods(http.MethodPatch)
	api.HandleFunc("/organization/{id:[0-9]+}", s.deleteOrganization).Methods(http.MethodDelete)

	// Collaborations
	api.HandleFunc("/collaboration", s.listCollaborations).Methods(http.MethodGet)
	api.HandleFunc("/collaboration", s.createCollaboration).Methods(http.MethodPost)
	api.HandleFunc("/collaboration/{id:[0-9]+}", s.getCollaboration).Methods(http.MethodGet)
	api.HandleFunc("/collaboration/{id:[0-9]+}", s.updateCollaboration).Methods(http.MethodPatch)
	api.HandleFunc("/collaboration/{id:[0-9]+}", s.deleteCollaboration).Methods(http.MethodDelete)

	// Nodes
	api.HandleFunc("/node", s.listNodes).Methods(http.MethodGet)
	api.HandleFunc("/node", s.createNode).Methods(http.MethodPost)
	api.HandleFunc("/node/{id:[0-9]+}", s.getNode).Methods(http.MethodGet)
	api.HandleFunc("/node/{id:[0-9]+}", s.updateNode).Methods(http.MethodPatch)
	api.HandleFunc("/node/{id:[0-9]+}", s.deleteNode).Methods(http.MethodDelete)

	// Users
	api.HandleFunc("/user", s.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/user", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/user/{id:[0-9]+}", s.getUser).Methods(http.MethodGet)
	api.HandleFunc("/user/{id:[0-9]+}", s.updateUser).Methods(http.MethodPatch)
	api.HandleFunc("/user/{id:[0-9]+}", s.deleteUser).Methods(http.MethodDelete)

	// Roles and rules
	api.HandleFunc("/role", s.listRoles).Methods(http.MethodGet)
	api.HandleFunc("/role", s.createRole).Methods(http.MethodPost)
	api.HandleFunc("/role/assignable", s.assignableRoles).Methods(http.MethodGet)
	api.HandleFunc("/role/{id:[0-9]+}", s.getRole).Methods(http.MethodGet)
	api.HandleFunc("/role/{id:[0-9]+}", s.updateRole).Methods(http.MethodPatch)
	api.HandleFunc("/role/{id:[0-9]+}", s.deleteRole).Methods(http.MethodDelete)
	api.HandleFunc("/rule", s.ruleCatalog).Methods(http.MethodGet)

	// Tasks and runs
	api.HandleFunc("/task", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/task", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/task/{id:[0-9]+}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/task/{id:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/task/{id:[0-9]+}/kill", s.killTask).Methods(http.MethodPost)
	api.HandleFunc("/task/{id:[0-9]+}/run", s.taskRuns).Methods(http.MethodGet)
	api.HandleFunc("/run/{id:[0-9]+}/log", s.runLog).Methods(http.MethodGet)

	// Algorithm stores
	api.HandleFunc("/algorithm-store", s.listAlgorithmStores).Methods(http.MethodGet)
	api.HandleFunc("/algorithm-store", s.createAlgorithmStore).Methods(http.MethodPost)
	api.HandleFunc("/algorithm-store/{id:[0-9]+}", s.getAlgorithmStore).Methods(http.MethodGet)
	api.HandleFunc("/algorithm-store/{id:[0-9]+}", s.deleteAlgorithmStore).Methods(http.MethodDelete)

	// Audit trail and live events
	api.HandleFunc("/audit", s.searchAudit).Methods(http.MethodGet)
	api.HandleFunc("/events", s.streamEvents).Methods(http.MethodGet)
}

// withLoginLimit applies the tight per-IP limiter to the login route only.
func (s *Server) withLoginLimit(limiter *middleware.RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow("login:" + r.RemoteAddr) {
			httputil.WriteTooManyRequests(w, "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router exposes the bare router for tests.
func (s *Server) Router() *mux.Router { return s.router }

// Handler returns the router wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = audit.NewMiddleware(s.auditor, s.metrics, false).Handler(h)
	if s.metrics != nil {
		h = observability.HTTPMetricsMiddleware(s.metrics)(h)
	}
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware,
		httputil.CORSMiddleware(s.origins),
	)(h)
}
