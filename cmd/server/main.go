package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authapp "github.com/erp/taxsync/internal/application/auth"
	reconcileapp "github.com/erp/taxsync/internal/application/reconcile"
	"github.com/erp/taxsync/internal/domain/session"
	"github.com/erp/taxsync/internal/infrastructure/cache"
	"github.com/erp/taxsync/internal/infrastructure/config"
	"github.com/erp/taxsync/internal/infrastructure/logger"
	"github.com/erp/taxsync/internal/infrastructure/persistence"
	"github.com/erp/taxsync/internal/infrastructure/taxauthority"
	"github.com/erp/taxsync/internal/interfaces/http/handler"
	"github.com/erp/taxsync/internal/interfaces/http/middleware"
	"github.com/erp/taxsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting TaxSync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)

	// Session storage, optionally fronted by a Redis read-through cache
	var sessionStore session.Store = persistence.NewGormSessionStore(db.DB)
	if cfg.Redis.Enabled {
		cached, err := cache.NewRedisSessionCache(cfg.Redis, sessionStore, cfg.Auth.SessionCacheTTL, log)
		if err != nil {
			log.Warn("Redis unavailable, using database-only session store", zap.Error(err))
		} else {
			sessionStore = cached
			log.Info("Session cache enabled",
				zap.String("host", cfg.Redis.Host),
				zap.Duration("ttl", cfg.Auth.SessionCacheTTL),
			)
		}
	}

	// Remote tax authority client
	remoteClient := taxauthority.NewHTTPClient(cfg.TaxAuthority, log)

	// Application services
	resolver := authapp.NewCredentialResolver(companyRepo, log)
	failureTracker := authapp.NewFailureTracker(cfg.Auth.MaxFailures, cfg.Auth.CooldownWindow)
	sessionService := authapp.NewSessionService(sessionStore, resolver, remoteClient, failureTracker, log)
	reconcileService := reconcileapp.NewService(
		documentRepo,
		remoteClient,
		sessionService,
		reconcileapp.NewCanonicalizer(log),
		log,
	)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Handlers
	authHandler := handler.NewAuthHandler(sessionService)
	documentHandler := handler.NewDocumentHandler(reconcileService)
	systemHandler := handler.NewSystemHandler(db)

	// Rate limit the authentication surface separately: remote login
	// attempts are expensive and feed the cooldown counter
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		engine.Use(pathPrefixMiddleware("/api/v1/auth", middleware.RateLimit(authLimiter)))
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(authHandler).
		Register(documentHandler).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// pathPrefixMiddleware applies a middleware only to requests under a prefix
func pathPrefixMiddleware(prefix string, mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(c.Request.URL.Path) >= len(prefix) && c.Request.URL.Path[:len(prefix)] == prefix {
			mw(c)
			return
		}
		c.Next()
	}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
