package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "mmcore/api/swagger" // swagger docs
	"mmcore/internal/config"
	"mmcore/internal/database"
	"mmcore/internal/erp"
	"mmcore/internal/frappe"
	"mmcore/internal/handler"
	"mmcore/internal/metabase"
	"mmcore/internal/middleware"
	"mmcore/internal/repository"
	"mmcore/internal/service"
	"mmcore/internal/warehouse"
)

const version = "1.0.0"

// @title           mm-core API
// @version         1.0
// @description     Chat command-center backend: approvals, metrics, digests and slash commands.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := newLogger(settings)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(settings.AuditDSN())
	if err != nil {
		logger.Fatal("audit store connection failed", zap.Error(err))
	}
	logger.Info("connected to audit store")

	wh, err := warehouse.NewClient(warehouse.Options{
		Addr:     fmt.Sprintf("%s:%d", settings.CHHost, settings.CHPort),
		Database: "default",
		Username: settings.CHUser,
		Password: settings.CHPassword,
	}, logger)
	if err != nil {
		logger.Fatal("warehouse connection failed", zap.Error(err))
	}
	defer wh.Close()

	erpFactory := erp.NewFactory(func(dbName string) (*erp.Client, error) {
		if !settings.IsAllowedDB(dbName) {
			return nil, fmt.Errorf("database %s not in allowed list", dbName)
		}
		return erp.NewClient(settings.ErpURL(dbName), dbName,
			settings.ErpUser, settings.ErpPassword, settings.ErpVersion(dbName), logger)
	})
	gatewayFactory := func(dbName string) (service.ErpGateway, error) {
		return erpFactory.Get(dbName)
	}

	frappeClient := frappe.NewClient(
		"https://"+settings.FrappeSite, settings.FrappeAPIKey, settings.FrappeAPISecret, logger)
	metabaseClient := metabase.NewClient(
		"https://"+settings.MBDomain, settings.MBEmbeddingSecret, settings.MBSessionToken, logger)

	auditRepo := repository.NewAuditRepository(db)
	erpDataRepo := repository.NewErpDataRepository(func(dbName string) (*gorm.DB, error) {
		dsn, err := settings.ErpReplicaDSN(dbName)
		if err != nil {
			return nil, err
		}
		return database.NewReadOnlyConnection(dsn)
	})

	auditService := service.NewAuditService(auditRepo, logger)
	approvalService := service.NewApprovalService(gatewayFactory, auditService, logger)
	metricsService := service.NewMetricsService(wh, erpDataRepo, logger)
	digestService := service.NewDigestService(wh, erpDataRepo, metricsService, logger)
	contextService := service.NewContextService(gatewayFactory, erpDataRepo, metricsService, logger)

	defaultDB := "tln_db"
	if len(settings.AllowedDBs) > 0 {
		defaultDB = settings.AllowedDBs[0]
	}
	slashService := service.NewSlashService(
		contextService, metricsService, metabaseClient, frappeClient, defaultDB, logger)

	verifier := middleware.NewJWKSVerifier(
		settings.JWKSURL(), settings.IdpIssuer, settings.IdpClientID, logger)
	auth := middleware.RequireAuth(settings, verifier)
	validDB := middleware.RequireValidDB(settings)

	approvalHandler := handler.NewApprovalHandler(approvalService)
	contextHandler := handler.NewContextHandler(contextService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	pendingHandler := handler.NewPendingHandler(contextService)
	digestHandler := handler.NewDigestHandler(digestService)
	slashHandler := handler.NewSlashHandler(slashService, settings)
	auditHandler := handler.NewAuditHandler(auditService)
	healthHandler := handler.NewHealthHandler(version, auditRepo, wh)

	if !settings.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{settings.ChatAPIURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-API-Key"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	healthHandler.RegisterRoutes(router)

	api := router.Group("/api/v1")
	approvalHandler.RegisterRoutes(api, auth, validDB)
	contextHandler.RegisterRoutes(api, auth, validDB)
	metricsHandler.RegisterRoutes(api, auth, validDB)
	pendingHandler.RegisterRoutes(api, auth, validDB)
	digestHandler.RegisterRoutes(api, auth, validDB)
	slashHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api, auth)

	logger.Info("server listening", zap.String("port", settings.Port))
	if err := router.Run(":" + settings.Port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(settings *config.Settings) (*zap.Logger, error) {
	if settings.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
