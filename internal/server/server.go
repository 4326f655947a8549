// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
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
	"github.com/securebank/sentinel/internal/alert"
	"github.com/securebank/sentinel/internal/audit"
	"github.com/securebank/sentinel/internal/config"
	"github.com/securebank/sentinel/internal/fraud"
	"github.com/securebank/sentinel/internal/health"
	"github.com/securebank/sentinel/internal/idgen"
	"github.com/securebank/sentinel/internal/incident"
	"github.com/securebank/sentinel/internal/intent"
	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
	"github.com/securebank/sentinel/internal/ratelimit"
	"github.com/securebank/sentinel/internal/realtime"
	"github.com/securebank/sentinel/internal/security"
	"github.com/securebank/sentinel/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	engine      *fraud.Engine
	trail       *audit.Trail
	incidents   incident.Client
	dispatcher  *alert.Dispatcher
	classifier  *intent.Detector
	realtimeHub *realtime.Hub
	healthReg   *health.Registry
	rateLimiter *ratelimit.Limiter
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	cancelRun   context.CancelFunc // cancels background goroutines started in Run

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

// WithIncidentClient sets a custom ticketing backend (for testing)
func WithIncidentClient(c incident.Client) Option {
	return func(s *Server) {
		s.incidents = c
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Durable audit storage (Postgres if DATABASE_URL set, ring-only otherwise)
	var auditStore audit.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		auditStore = audit.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL audit storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.logger.Info("no DATABASE_URL set, audit trail is ring-only")
	}
	s.trail = audit.New(cfg.AuditRingCapacity, cfg.AuditRetention, auditStore)

	// Ticketing backend (live ServiceNow if configured, simulated otherwise)
	if s.incidents == nil {
		if cfg.TicketingConfigured() {
			live := incident.NewServiceNow(incident.ServiceNowConfig{
				Instance:       cfg.ServiceNowInstance,
				Username:       cfg.ServiceNowUser,
				Password:       cfg.ServiceNowPassword,
				Timeout:        cfg.UpstreamTimeout,
				RetryAttempts:  cfg.RetryAttempts,
				RetryBaseDelay: cfg.RetryBaseDelay,
			})
			// An unreachable upstream degrades to simulated incidents so
			// escalated sessions always get a record.
			s.incidents = incident.NewFailover(live, incident.NewSimulator(), s.trail)
			s.logger.Info("servicenow ticketing enabled", "instance", cfg.ServiceNowInstance)
		} else {
			s.incidents = incident.NewSimulator()
			s.logger.Info("servicenow not configured, using simulated incidents")
		}
	}

	// Alert transport (live Twilio if configured, simulated otherwise)
	var sender alert.Sender
	if cfg.NotifierConfigured() {
		sender = alert.NewTwilio(alert.TwilioConfig{
			AccountSID:     cfg.TwilioAccountSID,
			AuthToken:      cfg.TwilioAuthToken,
			FromNumber:     cfg.TwilioFromNumber,
			WhatsAppNumber: cfg.TwilioWhatsAppNumber,
			Timeout:        cfg.UpstreamTimeout,
		})
		s.logger.Info("twilio alerting enabled")
	} else {
		sender = alert.NewSimulatedSender()
		s.logger.Info("twilio not configured, alerts are simulated")
	}
	s.dispatcher = alert.NewDispatcher(alert.Config{
		Destination:    cfg.AlertDestination,
		VoiceThreshold: cfg.HighLevelBoundary,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}, sender, s.trail)

	s.classifier = intent.New()
	s.realtimeHub = realtime.NewHub(s.logger)
	s.dispatcher.SetObserver(func(sessionID string, o alert.Outcome) {
		s.realtimeHub.BroadcastAlertDelivery(sessionID, o)
	})

	// Risk engine wired to its collaborators
	s.engine = fraud.NewEngine(riskParams(cfg), fraud.Deps{
		Tickets:       &ticketerAdapter{incidents: s.incidents},
		Alerts:        &alerterAdapter{dispatcher: s.dispatcher},
		Audit:         s.trail,
		Intents:       s.classifier,
		Publish:       &hubPublisher{hub: s.realtimeHub},
		TicketTimeout: cfg.UpstreamTimeout,
	})

	s.healthReg = health.NewRegistry()
	if s.db != nil {
		db := s.db
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}
	s.healthReg.Register("audit", func(ctx context.Context) health.Status {
		return health.Status{Name: "audit", Healthy: true,
			Detail: fmt.Sprintf("%d ring entries", s.trail.Len())}
	})

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

// riskParams maps the environment-driven scoring config onto engine params.
func riskParams(cfg *config.Config) fraud.Params {
	return fraud.Params{
		HighKeywordDelta:      cfg.HighKeywordDelta,
		MediumKeywordDelta:    cfg.MediumKeywordDelta,
		OTPRepeatDelta:        cfg.OTPRepeatDelta,
		OTPExcessDelta:        cfg.OTPExcessDelta,
		LargeAmountDelta:      cfg.LargeAmountDelta,
		ModerateAmountDelta:   cfg.ModerateAmountDelta,
		RapidRequestDelta:     cfg.RapidRequestDelta,
		StressEmotionDelta:    cfg.StressEmotionDelta,
		IdentityMismatchDelta: cfg.IdentityMismatchDelta,

		LargeAmountThreshold:    cfg.LargeAmountThreshold,
		ModerateAmountThreshold: cfg.ModerateAmountThreshold,
		RapidRequestThreshold:   cfg.RapidRequestThreshold,
		EmotionStreakThreshold:  cfg.EmotionStreakThreshold,

		MediumLevelBoundary: cfg.MediumLevelBoundary,
		HighLevelBoundary:   cfg.HighLevelBoundary,
	}
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

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limiterCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		limiterCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.New()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

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
	// Health and observability
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Live dashboard stream
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/v1")
	{
		v1.POST("/analyze", s.analyzeHandler)

		sessions := v1.Group("/sessions")
		sessions.Use(validation.SessionParamMiddleware())
		{
			sessions.GET("/:id/risk", s.sessionRiskHandler)
			sessions.POST("/:id/reset", s.sessionResetHandler)
		}

		v1.GET("/audit", s.auditQueryHandler)
		v1.GET("/incidents", s.incidentListHandler)
		v1.GET("/incidents/:id", s.incidentGetHandler)
		v1.PATCH("/incidents/:id", s.incidentUpdateHandler)
		v1.GET("/alerts/log", s.alertLogHandler)
		v1.GET("/stats", s.statsHandler)
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	s.trail.StartRetentionLoop(runCtx, time.Hour)

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

	// Cancel the context for all background goroutines (hub, retention loop)
	if s.cancelRun != nil {
		s.cancelRun()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Drain queued audit writes before the pool closes
	if s.trail != nil {
		s.trail.Close()
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
