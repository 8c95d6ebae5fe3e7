package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"productlogik/internal/config"
	"productlogik/internal/domain/auth"
	"productlogik/internal/domain/quota"
	"productlogik/internal/domain/result"
	"productlogik/internal/domain/upload"
	"productlogik/internal/middleware"
	jwtsvc "productlogik/internal/pkg/jwt"
	"productlogik/internal/pkg/response"
	"productlogik/internal/tabular"
	"productlogik/internal/worker"
)

type app struct {
	router   *gin.Engine
	pool     *worker.Pool
	executor *worker.Executor
}

// newApp wires services, the worker pool and the HTTP router. The pool is
// started and unfinished uploads from a previous run are queued again.
func newApp(cfg *config.Config, db *gorm.DB, analyzer worker.Analyzer, log *zap.Logger) (*app, error) {
	catalog, err := quota.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	quotaService := quota.NewService(quota.NewRepository(db), catalog)
	quotaHandler := quota.NewHandler(quotaService)

	authService := auth.NewService(auth.NewUserRepository(db), j, auth.NewDevConsoleMailer(cfg.DevEmail), cfg.VerifyCodePepper, cfg.VerifyCodeTTL)
	authHandler := auth.NewHandler(authService)

	executor := worker.NewExecutor(db, analyzer, quotaService)
	pool := worker.NewPool(executor, worker.Options{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
	})
	pool.Start()

	unfinished, err := executor.Unfinished(context.Background())
	if err != nil {
		log.Error("failed to list unfinished uploads", zap.Error(err))
	}
	pool.Resume(context.Background(), unfinished)

	uploadRepo := upload.NewRepository(db)
	resultRepo := result.NewRepository(db)

	uploadService := upload.NewService(uploadRepo, quotaService, pool, resultRepo, tabular.Limits{
		MaxBytes: cfg.MaxUploadBytes,
		MaxRows:  cfg.MaxRows,
	})
	uploadHandler := upload.NewHandler(uploadService)

	resultService := result.NewService(resultRepo, uploadRepo)
	resultHandler := result.NewHandler(resultService)
	wsHandler := result.NewWSHandler(resultService, j, cfg.WSPollInterval)

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)
		quotaHandler.RegisterPublicRoutes(v1)
		wsHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		{
			uploadHandler.RegisterRoutes(protected)
			resultHandler.RegisterRoutes(protected)
			quotaHandler.RegisterProtectedRoutes(protected)
		}
	}

	return &app{router: r, pool: pool, executor: executor}, nil
}
