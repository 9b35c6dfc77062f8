// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/mindsupport/internal/admin"
	"github.com/mbd888/mindsupport/internal/assistant"
	"github.com/mbd888/mindsupport/internal/auth"
	"github.com/mbd888/mindsupport/internal/chat"
	"github.com/mbd888/mindsupport/internal/config"
	"github.com/mbd888/mindsupport/internal/counselors"
	"github.com/mbd888/mindsupport/internal/crisis"
	"github.com/mbd888/mindsupport/internal/journal"
	"github.com/mbd888/mindsupport/internal/logging"
	"github.com/mbd888/mindsupport/internal/metrics"
	"github.com/mbd888/mindsupport/internal/ratelimit"
	"github.com/mbd888/mindsupport/internal/realtime"
	"github.com/mbd888/mindsupport/internal/screening"
	"github.com/mbd888/mindsupport/internal/security"
	"github.com/mbd888/mindsupport/internal/session"
	"github.com/mbd888/mindsupport/internal/traces"
	"github.com/mbd888/mindsupport/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg           *config.Config
	sessions      *session.Service
	chatSvc       *chat.Service
	screeningSvc  *screening.Service
	journalSvc    *journal.Service
	counselorSvc  *counselors.Service
	authMgr       *auth.Manager
	generator     assistant.Generator
	realtimeHub   *realtime.Hub
	rateLimiter   *ratelimit.Limiter
	db            *sql.DB // nil if using in-memory
	router        *gin.Engine
	httpSrv       *http.Server
	logger        *slog.Logger
	tracesStop    func(context.Context) error
	cancelRunCtx  context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGenerator sets a custom reply generator (for testing)
func WithGenerator(gen assistant.Generator) Option {
	return func(s *Server) {
		s.generator = gen
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set logger/generator)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	var (
		sessionStore   session.Store
		chatStore      chat.Store
		screeningStore screening.Store
		journalStore   journal.Store
		counselorStore counselors.Store
		authStore      auth.Store
	)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		sessionPG := session.NewPostgresStore(db)
		if err := sessionPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate session store", "error", err)
		}
		sessionStore = sessionPG

		chatPG := chat.NewPostgresStore(db)
		if err := chatPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate chat store", "error", err)
		}
		chatStore = chatPG

		screeningPG := screening.NewPostgresStore(db)
		if err := screeningPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate screening store", "error", err)
		}
		screeningStore = screeningPG

		journalPG := journal.NewPostgresStore(db)
		if err := journalPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate journal store", "error", err)
		}
		journalStore = journalPG

		counselorPG := counselors.NewPostgresStore(db)
		if err := counselorPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate counselor store", "error", err)
		}
		counselorStore = counselorPG

		authPG := auth.NewPostgresStore(db)
		if err := authPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		authStore = authPG
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		sessionStore = session.NewMemoryStore()
		chatStore = chat.NewMemoryStore()
		screeningStore = screening.NewMemoryStore()
		journalStore = journal.NewMemoryStore()
		counselorStore = counselors.NewMemoryStore()
		authStore = auth.NewMemoryStore()
	}

	s.sessions = session.NewService(sessionStore)
	s.authMgr = auth.NewManager(authStore)

	// Bootstrap admin key from config so operators can reach /admin without
	// a chicken-and-egg key creation problem.
	if cfg.AdminAPIKey != "" {
		if err := s.authMgr.RegisterStatic(ctx, cfg.AdminAPIKey, "Bootstrap admin", auth.RoleAdmin); err != nil {
			s.logger.Warn("failed to register admin API key", "error", err)
		} else {
			s.logger.Info("admin API key registered")
		}
	}

	// Crisis detection
	detector, err := crisis.NewDetector(crisis.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("failed to build crisis detector: %w", err)
	}

	// AI assistant: Gemini when configured, canned responses otherwise
	var gen assistant.Generator
	if s.generator != nil {
		gen = s.generator
	} else if cfg.GeminiAPIKey != "" {
		gen = assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		s.logger.Info("AI assistant enabled", "model", cfg.GeminiModel)
	} else {
		s.logger.Info("GEMINI_API_KEY not set, using fallback responses")
	}
	replies := assistant.NewService(gen)

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	s.chatSvc = chat.NewService(chatStore, s.sessions, detector, replies).
		WithEvents(s.realtimeHub)
	s.screeningSvc = screening.NewService(screeningStore, s.sessions).
		WithEvents(s.realtimeHub)
	s.journalSvc = journal.NewService(journalStore, s.sessions)
	s.counselorSvc = counselors.NewService(counselorStore)

	// Tracing (no-op when OTEL_EXPORTER_OTLP_ENDPOINT is unset)
	stop, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracesStop = stop
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting (per-category middleware is attached per route group)
	s.rateLimiter = ratelimit.New(s.rateLimitConfig())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

// rateLimitConfig starts from the production defaults and applies any
// per-category overrides from the environment.
func (s *Server) rateLimitConfig() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	if n := s.cfg.ChatRateLimit; n > 0 {
		cfg.Categories["chat"] = ratelimit.CategoryLimit{MaxRequests: n, Window: cfg.Categories["chat"].Window}
	}
	if n := s.cfg.ScreeningRateLimit; n > 0 {
		cfg.Categories["screening"] = ratelimit.CategoryLimit{MaxRequests: n, Window: cfg.Categories["screening"].Window}
	}
	if n := s.cfg.JournalRateLimit; n > 0 {
		cfg.Categories["journal"] = ratelimit.CategoryLimit{MaxRequests: n, Window: cfg.Categories["journal"].Window}
	}
	return cfg
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time streaming (monitoring dashboards)
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group. Auth is soft everywhere: anonymous users get the full
	// support surface, API keys only gate the admin routes below.
	v1 := s.router.Group("/v1")
	v1.Use(auth.Middleware(s.authMgr))

	// Sessions (anonymous identity lifecycle)
	general := v1.Group("", ratelimit.Middleware(s.rateLimiter, "general"))
	session.NewHandler(s.sessions).RegisterRoutes(general)

	// Chat pipeline
	chatGroup := v1.Group("", ratelimit.Middleware(s.rateLimiter, "chat"))
	chat.NewHandler(s.chatSvc).RegisterRoutes(chatGroup)

	// Screenings
	screeningGroup := v1.Group("", ratelimit.Middleware(s.rateLimiter, "screening"))
	screening.NewHandler(s.screeningSvc).RegisterRoutes(screeningGroup)

	// Mood journal
	journalGroup := v1.Group("", ratelimit.Middleware(s.rateLimiter, "journal"))
	journal.NewHandler(s.journalSvc).RegisterRoutes(journalGroup)

	// Counselor directory and crisis resources (read-mostly, general quota)
	counselors.NewHandler(s.counselorSvc).RegisterRoutes(general)
	crisis.NewHandler(crisis.DefaultResources()).RegisterRoutes(general)

	// ADMIN ROUTES (require an admin API key)
	adminGroup := v1.Group("", auth.RequireAdmin(s.authMgr))
	admin.NewHandler().
		WithSessions(s.sessions).
		WithMessages(s.chatSvc).
		WithScreenings(s.screeningSvc).
		WithJournal(s.journalSvc).
		WithCounselors(s.counselorSvc).
		WithRateLimiter(s.rateLimiter).
		RegisterRoutes(adminGroup)

	// API key management lives behind the same admin gate
	authAdmin := adminGroup.Group("/auth")
	auth.NewHandler(s.authMgr).RegisterRoutes(authAdmin)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "in-memory"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v == "unhealthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "MindSupport",
		"description": "Anonymous mental health support platform",
		"version":     "0.1.0",
		"docs":        "/api",
		"endpoints": gin.H{
			"sessions":   "/v1/sessions",
			"chat":       "/v1/chat/message",
			"screening":  "/v1/screening/{phq9,gad7}",
			"journal":    "/v1/journal",
			"counselors": "/v1/counselors",
			"crisis":     "/v1/crisis/resources",
			"realtime":   "/ws",
		},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Export database pool stats when backed by Postgres
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Flush any buffered trace spans
	if s.tracesStop != nil {
		if err := s.tracesStop(ctx); err != nil {
			s.logger.Warn("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
