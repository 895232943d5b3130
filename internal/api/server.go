package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pushmill/automation-engine/internal/api/handlers"
	"github.com/pushmill/automation-engine/internal/api/middleware"
	"github.com/pushmill/automation-engine/internal/audience"
	"github.com/pushmill/automation-engine/internal/downstream"
	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/storage"
	"github.com/pushmill/automation-engine/pkg/config"
	"github.com/pushmill/automation-engine/platform/events"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Server orchestrates HTTP routing and the engine's dependencies.
type Server struct {
	config    config.App
	logger    logging.Logger
	router    *gin.Engine
	db        *sql.DB
	engine    *engine.Engine
	publisher *events.Publisher
}

// NewServer wires the engine and its API together.
func NewServer() (*Server, error) {
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db := connectDatabase(cfg, logger)
	store := storage.NewMySQLClient(db)
	publisher := events.NewPublisher(cfg.KafkaBrokers, logger)

	eng, err := engine.Init(engine.Deps{
		Config:      cfg,
		Logger:      logger,
		Definitions: store,
		Progress:    store,
		History:     store,
		Publisher:   publisher,
		Downstream:  downstream.NewClient(cfg.DownstreamBaseURL(), logger),
		Registry:    audience.NewRegistry(),
		Subprocess:  audience.NewSubprocessExecutor(cfg.ScriptsDir, cfg.CadenceServiceURL, logger),
	})
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:    cfg,
		logger:    logger,
		db:        db,
		engine:    eng,
		publisher: publisher,
	}

	server.setupRouter()
	return server, nil
}

// Engine exposes the wired engine for startup restoration.
func (s *Server) Engine() *engine.Engine { return s.engine }

// setupRouter configures the Gin router with middleware and routes.
func (s *Server) setupRouter() {
	router := gin.New()

	zapLogger := s.getZapLogger()

	// Recovery first so panics from later middleware are caught too.
	router.Use(ginzap.RecoveryWithZap(zapLogger, true))
	router.Use(middleware.RequestID())
	router.Use(ginzap.Ginzap(zapLogger, time.RFC3339, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.NewHealthHandler(s.logger, s.config.EngineVersion).Health)
	router.GET("/metrics", handlers.NewMetricsHandler(s.logger, s.engine).Metrics)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		automationHandler := handlers.NewAutomationHandler(s.logger, s.engine)
		controlHandler := handlers.NewControlHandler(s.logger, s.engine)
		streamHandler := handlers.NewStreamHandler(s.logger, s.engine)

		automations := v1.Group("/automations")
		{
			automations.GET("", automationHandler.ListScheduled)
			automations.GET("/debug", automationHandler.Debug)
			automations.POST("/:id/schedule", automationHandler.Schedule)
			automations.DELETE("/:id/schedule", automationHandler.Unschedule)

			automations.POST("/control", controlHandler.Control)
			automations.GET("/control", controlHandler.ControlStatus)

			automations.GET("/progress-stream", streamHandler.Stream)
		}
	}

	s.router = router
}

// getZapLogger builds the *zap.Logger the gin-contrib/zap middleware needs.
func (s *Server) getZapLogger() *zap.Logger {
	var zapLogger *zap.Logger
	if s.config.Environment == "production" {
		zapLogger, _ = zap.NewProduction()
	} else {
		zapLogger, _ = zap.NewDevelopment()
	}
	return zapLogger
}

// Serve starts the HTTP server and blocks until a termination signal, then
// shuts down the engine and the server gracefully.
func (s *Server) Serve() error {
	addr := ":" + s.config.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Long write timeout: progress streams stay open across a full
		// cancellation window.
		WriteTimeout: 45 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting automation engine server",
			zap.String("address", addr),
			zap.String("environment", s.config.Environment),
			zap.String("engine_version", s.config.EngineVersion),
			zap.String("instance_id", s.engine.InstanceID()),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-quit
	s.logger.Info("shutting down gracefully...")

	// Release every cron handle before refusing new requests so no tick
	// fires into a dying process.
	s.engine.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("failed to close event publisher", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if err := s.logger.Sync(); err != nil {
		// Ignore sync errors on stdout/stderr
		if err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: invalid argument" {
			return err
		}
	}

	s.logger.Info("server stopped")
	return nil
}

func connectDatabase(cfg config.App, logger logging.Logger) *sql.DB {
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("mysql", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database connection", zap.Error(err))
	}

	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(60 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	return db
}
