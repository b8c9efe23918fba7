package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dailyledger/internal/access"
	"dailyledger/internal/core"
	"dailyledger/internal/log"
	"dailyledger/internal/middleware/ratelimit"
	"dailyledger/internal/middleware/security"
	"dailyledger/internal/middleware/trace"
)

const requestTimeout = 15 * time.Second

// Ledger is the subset of the expense store the API serves.
type Ledger interface {
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id core.ExpenseID, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id core.ExpenseID) error
	Get(ctx context.Context, id core.ExpenseID) (core.Expense, error)
	ListAll(ctx context.Context) ([]core.Expense, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
	ListForDay(ctx context.Context, date time.Time) ([]core.Expense, error)
	DailyTotal(ctx context.Context, date time.Time) (core.Money, error)
	TotalToNow(ctx context.Context, period core.Period) (core.Total, error)
	Totals(ctx context.Context, day time.Time) (core.Totals, error)
	Ping(ctx context.Context) error
	Calendar() core.Calendar
	Now() time.Time
}

// Options configures NewServer.
type Options struct {
	Addr   string
	Ledger Ledger
	// Registry resolves roles and profiles. Required.
	Registry *access.Registry
	// Auth verifies bearer tokens. When nil every caller is anonymous and
	// expense mutations are not role-gated.
	Auth *access.Authenticator
	// RateLimitRPM caps /api requests per caller per minute; 0 disables it.
	RateLimitRPM   int
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	ledger     Ledger
	registry   *access.Registry
	openAccess bool
	logger     *log.Logger

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:     opts.Ledger,
		registry:   opts.Registry,
		openAccess: opts.Auth == nil,
		logger:     logger,
		detector:   detector,
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
	}
	if s.registry == nil {
		s.registry = access.NewRegistry(nil)
	}
	if opts.RateLimitRPM > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM})
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(detector.Middleware(logger))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.Middleware(s.rateLimitKey))
		}

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", s.handleCreateExpense)
			r.Get("/", s.handleListExpenses)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/totals", func(r chi.Router) {
			r.Get("/", s.handleTotals)
			r.Get("/daily", s.handleDailyTotal)
			r.Get("/month-to-date", s.handleMonthToDate)
			r.Get("/year-to-date", s.handleYearToDate)
			r.Get("/all-time", s.handleAllTime)
		})

		r.Get("/me/role", s.handleCallerRole)
		r.Get("/me/admin", s.handleIsCallerAdmin)
		r.Get("/me/profile", s.handleGetCallerProfile)
		r.Put("/me/profile", s.handleSaveCallerProfile)
		r.Get("/users/{principal}/profile", s.handleGetUserProfile)
		r.Put("/users/{principal}/role", s.handleAssignRole)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// rateLimitKey buckets authenticated callers by principal and anonymous
// callers by client IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if p := access.PrincipalFromContext(r.Context()); p != "" {
		return "principal:" + p
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

// requireMutation applies the role gate for expense writes.
func (s *Server) requireMutation(r *http.Request) error {
	if s.openAccess {
		return nil
	}
	return s.registry.Require(access.PrincipalFromContext(r.Context()), access.RoleUser)
}
