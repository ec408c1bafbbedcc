package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rowgate-io/rowgate/pkg/access"
	"github.com/rowgate-io/rowgate/pkg/audit"
	"github.com/rowgate-io/rowgate/pkg/auth"
	"github.com/rowgate-io/rowgate/pkg/config"
	"github.com/rowgate-io/rowgate/pkg/database"
	"github.com/rowgate-io/rowgate/pkg/handlers"
	"github.com/rowgate-io/rowgate/pkg/logging"
	"github.com/rowgate-io/rowgate/pkg/middleware"
	"github.com/rowgate-io/rowgate/pkg/repositories"
	"github.com/rowgate-io/rowgate/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Database),
		zap.Int("sources", len(cfg.Sources)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run over database/sql; the runtime pool is pgx.
	migrationDB, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	engineDB, err := database.Connect(ctx, cfg.Database.ConnectionString(), database.PoolSettings{
		MaxConns: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine database", zap.Error(err))
	}
	defer engineDB.Close()

	registry := database.NewRegistry(cfg.Sources, database.PoolSettings{
		MaxConns: cfg.Pool.MaxConns,
	}, logger)
	defer registry.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(engineDB)
	grantRepo := repositories.NewGrantRepository(engineDB)
	visibilityRepo := repositories.NewVisibilityRepository(engineDB)
	filterRepo := repositories.NewFilterDefinitionRepository(engineDB)
	blockRepo := repositories.NewReportBlockRepository(engineDB)
	auditRepo := repositories.NewAuditRepository(engineDB)

	// Core collaborators
	gate := access.NewGate(grantRepo, visibilityRepo, logger)
	recorder := audit.NewRecorder(auditRepo, logger)

	// Services
	browseService := services.NewBrowseService(gate, registry, recorder, cfg.PageSize, logger)
	exportService := services.NewExportService(gate, registry, recorder, cfg.Export, logger)
	reportService := services.NewReportService(gate, registry, blockRepo, recorder, cfg.PageSize, logger)
	dashboardService := services.NewDashboardService(gate, registry, blockRepo, recorder, cfg.Cache, logger)

	authMiddleware := auth.NewMiddleware(cfg.Auth.SigningKey, cfg.Auth.EnableVerification, userRepo, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewRowsHandler(browseService, logger).RegisterRoutes(mux, authMiddleware.RequireAuth)
	handlers.NewExportHandler(exportService, logger).RegisterRoutes(mux, authMiddleware.RequireAuth)
	handlers.NewReportsHandler(reportService, blockRepo, logger).RegisterRoutes(mux, authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	handlers.NewTablesHandler(gate, registry, logger).RegisterRoutes(mux, authMiddleware.RequireAuth)
	handlers.NewFiltersHandler(filterRepo, logger).RegisterRoutes(mux, authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	handlers.NewDashboardHandler(dashboardService, logger).RegisterRoutes(mux, authMiddleware.RequireAuth)
	handlers.NewAdminHandler(userRepo, grantRepo, visibilityRepo, logger).RegisterRoutes(mux, authMiddleware.RequireAdmin)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting rowgate",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	// Exports in flight get a grace window to finish streaming.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown did not complete cleanly", zap.Error(err))
	}
}
