// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	appctx "almox/internal/core/context"
	"almox/internal/core/numerator"
	"almox/internal/core/tenant"
	"almox/internal/domain/access"
	"almox/internal/domain/assets"
	"almox/internal/domain/catalogs/location"
	"almox/internal/domain/ledger"
	"almox/internal/domain/transfer"
	"almox/internal/infrastructure/http/v1/handlers"
	"almox/internal/infrastructure/http/v1/middleware"
	"almox/internal/infrastructure/storage/postgres"
	"almox/internal/infrastructure/storage/postgres/access_repo"
	"almox/internal/infrastructure/storage/postgres/asset_repo"
	"almox/internal/infrastructure/storage/postgres/catalog_repo"
	"almox/internal/infrastructure/storage/postgres/ledger_repo"
	"almox/internal/infrastructure/storage/postgres/transfer_repo"
	"almox/pkg/logger"
)

// RouterConfig holds router configuration for multi-tenant architecture.
type RouterConfig struct {
	// TenantManager manages database connections for all tenants
	TenantManager *tenant.Manager

	// MetaPool is connection to meta-database (for health checks)
	MetaPool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numerator for transfer and term number generation
	Numerator numerator.Generator

	// Audit records sensitive operations outside the request transaction
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.MetaPool, cfg.TenantManager)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
		health.GET("/tenants", healthHandler.TenantsStats)
	}

	// API v1 - TenantDB runs first, then Auth
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantDB(cfg.TenantManager))
	v1.Use(middleware.Auth(cfg.JWTValidator))

	registerStockRoutes(v1, cfg)

	return router
}

// registerStockRoutes wires repositories, services and handlers.
// Repos and services are created once; TxManager comes from the
// request context, so the same instances serve every tenant.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	locationRepo := catalog_repo.NewLocationRepo()
	accessRepo := access_repo.NewAssignmentRepo()
	stockRepo := ledger_repo.NewStockRepo()
	transferRepo := transfer_repo.NewTransferRepo()
	assetRepo := asset_repo.NewAssetRepo()

	accessService := access.NewService(accessRepo, locationRepo)
	locationService := location.NewService(locationRepo)
	ledgerService := ledger.NewService(stockRepo, accessService, locationRepo, cfg.Numerator, cfg.Audit)
	transferService := transfer.NewService(transferRepo, ledgerService, accessService, locationRepo, cfg.Numerator, cfg.Audit)
	costResolver := assets.NewCostResolver(stockRepo)
	assetService := assets.NewService(ledgerService, costResolver, assetRepo, cfg.Numerator)

	// --- LOCATIONS ---
	{
		handler := handlers.NewLocationHandler(baseHandler, locationService)
		group := rg.Group("/locations")
		group.GET("", handler.List)
		group.GET("/:locationId", handler.GetByID)

		admin := group.Group("")
		admin.Use(middleware.RequireRole(appctx.RoleSuperAdmin, appctx.RoleAdmin))
		admin.POST("", handler.Create)
		admin.PUT("/:locationId", handler.Update)
		admin.DELETE("/:locationId", handler.Deactivate)
	}

	// --- KEEPER ASSIGNMENTS ---
	{
		handler := handlers.NewAccessHandler(baseHandler, accessService)
		group := rg.Group("/keepers")
		group.GET("/locations/:locationId",
			middleware.RequirePermission(appctx.PermStockKeepersView),
			handler.ListByLocation)

		admin := group.Group("")
		admin.Use(middleware.RequireRole(appctx.RoleSuperAdmin, appctx.RoleAdmin))
		admin.POST("", handler.Assign)
		admin.DELETE("/:assignmentId", handler.Unassign)
	}

	// --- STOCK LEDGER ---
	{
		handler := handlers.NewStockHandler(baseHandler, ledgerService)
		handler.RegisterRoutes(rg.Group("/stock"))
	}

	// --- STAGED TRANSFERS ---
	{
		handler := handlers.NewTransferHandler(baseHandler, transferService)
		handler.RegisterRoutes(rg.Group("/transfers"))
	}

	// --- ASSET CONVERSIONS ---
	{
		handler := handlers.NewAssetHandler(baseHandler, assetService)
		handler.RegisterRoutes(rg.Group("/assets"))
	}
}
