package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/db"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/handler"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/middleware"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/internal/store"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/config"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/database"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/jwtutil"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/logger"
	"github.com/mattfili/hippa-compliant-railway-stack-sub001/pkg/metrics"
)

const serviceName = "tenant-data-service"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting tenant data service...", cfg.LogConfig()...)

	// Apply schema migrations before opening the pool for traffic. The
	// service refuses to start on a partially migrated schema.
	if err := db.Migrate(cfg.DB.GetURL(), log); err != nil {
		log.Fatal("Failed to apply schema migrations", zap.Error(err))
	}

	// Initialize database connection pool
	gormDB, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	// Initialize Prometheus metrics
	httpMetrics := metrics.NewHTTPMetrics(cfg.Metrics.Prefix)
	log.Info("Prometheus metrics initialized")

	// Initialize stores and handlers
	baseStore := store.NewStore(gormDB)
	tenantStore := store.NewTenantStore(baseStore)
	userStore := store.NewUserStore(baseStore)
	documentStore := store.NewDocumentStore(baseStore)
	auditStore := store.NewAuditStore(baseStore)

	tenantHandler := handler.NewTenantHandler(tenantStore, auditStore, httpMetrics)
	userHandler := handler.NewUserHandler(userStore, auditStore, httpMetrics)
	documentHandler := handler.NewDocumentHandler(documentStore, auditStore, httpMetrics,
		cfg.Vector.SearchLimit, cfg.Vector.SearchThreshold)
	auditHandler := handler.NewAuditHandler(auditStore, httpMetrics)
	readinessHandler := handler.NewReadinessHandler(cfg.DB.GetURL())

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(httpMetrics.Middleware())

	// Public routes - no authentication required
	e.GET("/health/live", handler.Liveness)
	e.GET("/health/ready", readinessHandler.Check)
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	// Tenant-scoped API: every route below is bound to the tenant carried
	// by the validated token
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtUtil))

	api.GET("/tenant", tenantHandler.GetCurrent)

	users := api.Group("/users")
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/deleted", userHandler.ListDeleted)
	users.GET("/:id", userHandler.Get)
	users.DELETE("/:id", userHandler.Delete)
	users.POST("/:id/restore", userHandler.Restore)

	documents := api.Group("/documents")
	documents.POST("", documentHandler.Create)
	documents.GET("", documentHandler.List)
	documents.POST("/search", documentHandler.Search)
	documents.GET("/:id", documentHandler.Get)
	documents.PUT("/:id/status", documentHandler.SetStatus)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.POST("/:id/restore", documentHandler.Restore)

	audit := api.Group("/audit")
	audit.GET("", auditHandler.List)
	audit.GET("/:id", auditHandler.Get)
	audit.GET("/resource/:resource_type/:resource_id", auditHandler.ListByResource)
	audit.POST("/:id/retract", auditHandler.Retract)

	// Administrative API: cross-tenant provisioning, restricted to the
	// admin role and upgraded to the system scope per request
	admin := e.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(jwtUtil))
	admin.Use(middleware.SystemScopeMiddleware())

	tenants := admin.Group("/tenants")
	tenants.POST("", tenantHandler.Create)
	tenants.GET("", tenantHandler.List)
	tenants.GET("/:id", tenantHandler.Get)
	tenants.PUT("/:id/status", tenantHandler.SetStatus)
	tenants.DELETE("/:id", tenantHandler.Delete)
	tenants.POST("/:id/restore", tenantHandler.Restore)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
