package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"productlogik/internal/analysis"
	"productlogik/internal/analysis/gemini"
	"productlogik/internal/analysis/openai"
	"productlogik/internal/config"
	"productlogik/internal/database"
	"productlogik/internal/pkg/logger"
	"productlogik/internal/schema"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := schema.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate schema", zap.Error(err))
	}

	chain := analysis.NewChain(analysis.Options{
		SampleSize:  cfg.AnalysisSampleSize,
		CallTimeout: cfg.ProviderTimeout,
	}, providers(cfg)...)
	if len(chain.Available()) == 0 {
		zlog.Warn("no analysis provider has credentials; every analysis will fail")
	} else {
		zlog.Info("analysis providers ready", zap.Strings("providers", chain.Available()))
	}

	a, err := newApp(cfg, db, chain, zlog)
	if err != nil {
		zlog.Fatal("failed to build app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		httpErr := srv.Shutdown(shutdownCtx)
		if err := a.pool.Stop(shutdownCtx); err != nil {
			zlog.Warn("unfinished analyses left for next startup", zap.Error(err))
		}
		return httpErr
	})

	if err := g.Wait(); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
	}
}

// providers builds the analysis providers in the configured order.
func providers(cfg *config.Config) []analysis.Provider {
	var out []analysis.Provider
	for _, name := range cfg.ProviderOrder {
		switch name {
		case gemini.Name:
			out = append(out, gemini.New(gemini.Config{
				APIKey:        cfg.GeminiAPIKey,
				Model:         cfg.GeminiModel,
				FallbackModel: cfg.GeminiFallbackModel,
			}))
		case openai.Name:
			out = append(out, openai.New(openai.Config{
				APIKey: cfg.OpenAIAPIKey,
				Model:  cfg.OpenAIModel,
			}))
		}
	}
	return out
}
