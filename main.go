package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/carepath/internal/audit"
	"github.com/vcscsvcscs/carepath/internal/azure"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"github.com/vcscsvcscs/carepath/internal/config"
	"github.com/vcscsvcscs/carepath/internal/handler"
	"github.com/vcscsvcscs/carepath/internal/middleware"
	"github.com/vcscsvcscs/carepath/internal/pdf"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/internal/security"
	"github.com/vcscsvcscs/carepath/internal/service"
	"github.com/vcscsvcscs/carepath/pkg/api"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	pool   *pgxpool.Pool
	cfg    *config.Config
)

func main() {
	// Load configuration
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err = newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("classifier_url", cfg.Classifier.BaseURL),
	)

	// Audit trail is optional
	var auditor service.AuditRecorder
	if cfg.Database.URL != "" {
		pool, err = newPool(context.Background(), cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		auditLogger := audit.NewLogger(pool, logger)
		if cfg.Audit.EncryptionKey != "" {
			encryptor, err := security.NewEncryptorFromBase64(cfg.Audit.EncryptionKey)
			if err != nil {
				logger.Fatal("Failed to initialize audit encryption", zap.Error(err))
			}
			auditLogger.WithEncryptor(encryptor)
		}
		if err := auditLogger.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare audit schema", zap.Error(err))
		}
		auditor = auditLogger
		logger.Info("Audit trail enabled")
	} else {
		logger.Info("DATABASE_URL not set, audit trail disabled")
	}

	// Result archive is optional
	var archive azure.BlobStorage
	if cfg.Azure.Storage.Enabled() {
		blobClient, err := azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.ResultContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		archive = blobClient
		logger.Info("Result archive enabled", zap.String("container", cfg.Azure.Storage.ResultContainer))
	}

	classifierClient, err := classifier.NewHTTPClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to initialize classification client", zap.Error(err))
	}

	// Initialize services
	triageService := service.NewTriageService(
		questionnaire.DefaultEngine(),
		classifierClient,
		service.NewSessionStore(cfg.Session.TTL, logger),
		service.NewPresenter(cfg.History.MaxItems, cfg.History.MaxReasons),
		auditor,
		archive,
		pdf.NewPDFGenerator(logger),
		logger,
	)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	if cfg.Session.TTL > 0 {
		triageService.StartJanitor(janitorCtx, cfg.Session.SweepInterval)
	}

	// Create a unified handler that implements the ServerInterface
	apiHandler := &APIHandler{
		questionnaire: handler.NewQuestionnaireHandler(triageService, logger),
		triage:        handler.NewTriageHandler(triageService, logger),
		health:        handler.NewHealthHandler(cfg.Server.Environment, cfg.Server.Version),
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.SlowRequestMiddleware(logger, 2*time.Second))

	// Register generated API handlers
	api.RegisterHandlers(r, apiHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopJanitor()
	triageService.Wait()

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Server.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	if cfg.Logging.Format == "console" || cfg.Logging.Format == "json" {
		zapCfg.Encoding = cfg.Logging.Format
	}

	return zapCfg.Build()
}

func newPool(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}
	if db.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(db.MaxOpenConns)
	}
	poolCfg.MaxConnLifetime = db.ConnMaxLifetime

	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// APIHandler implements the generated ServerInterface by delegating to individual handlers
type APIHandler struct {
	questionnaire *handler.QuestionnaireHandler
	triage        *handler.TriageHandler
	health        *handler.HealthHandler
}

// Questionnaire endpoints
func (h *APIHandler) GetApiV1QuestionnaireSteps(c *gin.Context) {
	h.questionnaire.GetApiV1QuestionnaireSteps(c)
}

func (h *APIHandler) PostApiV1QuestionnaireSessions(c *gin.Context) {
	h.questionnaire.PostApiV1QuestionnaireSessions(c)
}

func (h *APIHandler) GetApiV1QuestionnaireSessionsSessionId(c *gin.Context, sessionId openapi_types.UUID) {
	h.questionnaire.GetApiV1QuestionnaireSessionsSessionId(c, sessionId)
}

func (h *APIHandler) PostApiV1QuestionnaireSessionsSessionIdToggle(c *gin.Context, sessionId openapi_types.UUID) {
	h.questionnaire.PostApiV1QuestionnaireSessionsSessionIdToggle(c, sessionId)
}

func (h *APIHandler) PostApiV1QuestionnaireSessionsSessionIdAdvance(c *gin.Context, sessionId openapi_types.UUID) {
	h.questionnaire.PostApiV1QuestionnaireSessionsSessionIdAdvance(c, sessionId)
}

func (h *APIHandler) PostApiV1QuestionnaireSessionsSessionIdRetreat(c *gin.Context, sessionId openapi_types.UUID) {
	h.questionnaire.PostApiV1QuestionnaireSessionsSessionIdRetreat(c, sessionId)
}

func (h *APIHandler) PostApiV1QuestionnaireSessionsSessionIdRestart(c *gin.Context, sessionId openapi_types.UUID) {
	h.questionnaire.PostApiV1QuestionnaireSessionsSessionIdRestart(c, sessionId)
}

// Triage endpoints
func (h *APIHandler) PostApiV1QuestionnaireSessionsSessionIdSubmit(c *gin.Context, sessionId openapi_types.UUID) {
	h.triage.PostApiV1QuestionnaireSessionsSessionIdSubmit(c, sessionId)
}

func (h *APIHandler) GetApiV1QuestionnaireSessionsSessionIdResultPdf(c *gin.Context, sessionId openapi_types.UUID) {
	h.triage.GetApiV1QuestionnaireSessionsSessionIdResultPdf(c, sessionId)
}

func (h *APIHandler) GetApiV1TriageHistory(c *gin.Context) {
	h.triage.GetApiV1TriageHistory(c)
}

// GetHealth implements the health check endpoint
func (h *APIHandler) GetHealth(c *gin.Context) {
	h.health.GetHealth(c)
}
