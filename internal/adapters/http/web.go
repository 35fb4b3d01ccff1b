// Package web is the JSON API over the mutation workflows, the live feeds
// and the per-client notification bus.
package web

import (
	"context"
	"net/http"
	"time"

	"sportify/internal/adapters/http/middleware"
	"sportify/internal/adapters/metrics"
	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
)

// DefaultRateLimit is the sustained per-client request rate.
const DefaultRateLimit = 10

// Identity is the identity-service surface the auth routes drive.
type Identity interface {
	orchestrators.IdentitySignUp
	orchestrators.IdentitySignIn
	orchestrators.IdentityRefresh
}

// Options holds everything NewMux wires together.
type Options struct {
	Workflows orchestrators.Deps
	Identity  Identity
	Clients   middleware.ClientAttacher
	Feeds     *projections.Catalog
	Repairs   *orchestrators.RepairProcessor
	Metrics   *metrics.Metrics // optional
	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error

	CSRFKey        []byte // 32 bytes
	SecureCookies  bool
	TrustedOrigins []string
	CORSOrigins    []string
	RateLimit      float64
	SlowRequest    time.Duration
	ResolveTimeout time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	deps     orchestrators.Deps
	identity Identity
	clients  middleware.ClientAttacher
	feeds    *projections.Catalog
	repairs  *orchestrators.RepairProcessor
	metrics  *metrics.Metrics
	health   func(ctx context.Context) error
}

// NewServer builds the handler set without the middleware chain.
func NewServer(opts Options) *Server {
	return &Server{
		deps:     opts.Workflows,
		identity: opts.Identity,
		clients:  opts.Clients,
		feeds:    opts.Feeds,
		repairs:  opts.Repairs,
		metrics:  opts.Metrics,
		health:   opts.Health,
	}
}

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options) http.Handler {
	s := NewServer(opts)
	middleware.SecureCookies = opts.SecureCookies

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	limit := opts.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	limiter := middleware.NewRateLimiter(limit, 2*int(limit))

	// Apply middleware (inner to outer): Timing -> Auth -> CSRF -> RateLimit -> CORS -> SecurityHeaders
	return middleware.Chain(mux,
		middleware.Timing(opts.Metrics, opts.SlowRequest),
		middleware.Auth(opts.Clients, opts.ResolveTimeout),
		middleware.CSRF(opts.CSRFKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.RateLimit(limiter),
		middleware.CORS(opts.CORSOrigins),
		middleware.SecurityHeaders,
	)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// auth
	mux.HandleFunc("POST /api/auth/{portal}/login", s.handlePortalLogin)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/me", s.handleMe)

	// admin
	mux.HandleFunc("GET /api/admin/applications", s.handlePendingApplications)
	mux.HandleFunc("POST /api/admin/applications/{id}/review", s.handleReviewApplication)
	mux.HandleFunc("POST /api/admin/trials", s.handleCreateTrial)
	mux.HandleFunc("POST /api/admin/schedules", s.handleCreateSchedule)
	mux.HandleFunc("POST /api/admin/coaches/assign", s.handleAssignCoach)
	mux.HandleFunc("GET /api/admin/coaches", s.handleCoaches)
	mux.HandleFunc("POST /api/admin/users/{id}/role", s.handleSetUserRole)
	mux.HandleFunc("GET /api/admin/players", s.handlePlayers)
	mux.HandleFunc("GET /api/admin/reports/approved", s.handleApprovedApplicants)
	mux.HandleFunc("GET /api/admin/repairs", s.handleListRepairs)
	mux.HandleFunc("POST /api/admin/repairs/{id}/retry", s.handleRetryRepair)
	mux.HandleFunc("POST /api/admin/repairs/{id}/abandon", s.handleAbandonRepair)

	// coach
	mux.HandleFunc("GET /api/coach/roster", s.handleRoster)
	mux.HandleFunc("POST /api/coach/attendance", s.handleRecordAttendance)
	mux.HandleFunc("POST /api/coach/evaluations", s.handleSubmitEvaluation)
	mux.HandleFunc("POST /api/coach/results", s.handleUploadTrialResult)

	// player
	mux.HandleFunc("POST /api/player/applications", s.handleSubmitApplication)
	mux.HandleFunc("PUT /api/player/profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /api/player/achievements", s.handleAddAchievement)

	// shared
	mux.HandleFunc("GET /api/trials", s.handleTrials)
	mux.HandleFunc("GET /api/schedules", s.handleSchedules)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/evaluations", s.handleEvaluations)
	mux.HandleFunc("GET /api/attendance", s.handleAttendance)
	mux.HandleFunc("GET /api/feeds/{feed}", s.handleFeed)
	mux.HandleFunc("GET /api/toasts", s.handleToasts)
	mux.HandleFunc("DELETE /api/toasts/{id}", s.handleDismissToast)

	// ops
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
}
