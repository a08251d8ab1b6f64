// Boothsim - discovery conversation simulator server
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/boothsim/internal/agent"
	"github.com/ashureev/boothsim/internal/api"
	"github.com/ashureev/boothsim/internal/config"
	"github.com/ashureev/boothsim/internal/engine"
	"github.com/ashureev/boothsim/internal/identity"
	"github.com/ashureev/boothsim/internal/live"
	"github.com/ashureev/boothsim/internal/middleware"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/simulation"
	"github.com/ashureev/boothsim/internal/store"
	"github.com/ashureev/boothsim/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	if err := run(logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("store health check: %w", err)
	}
	slog.Info("Store connected", "driver", cfg.StoreDriver)

	ruleSet := rules.Default()
	if cfg.RulesPath != "" {
		if ruleSet, err = rules.Load(cfg.RulesPath); err != nil {
			return err
		}
		slog.Info("Rules loaded", "path", cfg.RulesPath)
	}

	generator, err := agent.NewGenerator(ctx, agent.Config{
		Kind:            cfg.Generator.Kind,
		Addr:            cfg.Generator.Addr,
		GeminiAPIKey:    cfg.Generator.GeminiAPIKey,
		GeminiModel:     cfg.Generator.GeminiModel,
		AzureEndpoint:   cfg.Generator.AzureEndpoint,
		AzureKey:        cfg.Generator.AzureKey,
		AzureDeployment: cfg.Generator.AzureDeployment,
		RequestTimeout:  cfg.Generator.EnrichTimeout,
	}, logger)
	if err != nil {
		// Replies still work from templates and the mock generator.
		slog.Warn("Generator unavailable, falling back to mock replies", "kind", cfg.Generator.Kind, "error", err)
		generator = nil
	}
	var generatorHealth api.GeneratorHealth
	if generator != nil {
		slog.Info("Generator ready", "name", generator.Name())
		if c, ok := generator.(io.Closer); ok {
			defer c.Close()
		}
		if h, ok := generator.(api.GeneratorHealth); ok {
			generatorHealth = h
		}
	}

	convoLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("conversation logger: %w", err)
	}
	defer func() {
		if closeErr := convoLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	eng := engine.New(ruleSet, engine.Options{
		Generator:     generator,
		Fallback:      agent.NewMockGenerator(),
		EnrichTimeout: cfg.Generator.EnrichTimeout,
		Logger:        logger,
	})
	svc := simulation.New(eng, repo, convoLogger, logger)

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	handler := api.NewHandler(svc, limiter, logger)
	healthHandler := api.NewHealthHandler(repo, generatorHealth)
	sm := live.NewSessionManager()
	wsHandler := live.NewWebSocketHandler(svc, sm, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins(), identity.ClientHeaderName))

	healthHandler.RegisterHealth(r)
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		handler.RegisterRoutes(r)
		r.Get("/ws/sessions/{sessionID}", wsHandler.ServeHTTP)
	})
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return simulation.RunSweeper(gctx, repo, cfg.SessionTTL, 0, func(deleted int64) {
			pruned := limiter.Prune()
			locks := svc.PruneLocks(gctx)
			slog.Info("Expired sessions removed", "deleted", deleted, "limiters_pruned", pruned,
				"locks_pruned", locks, "live_connections", sm.Count())
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		return store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.SessionTTL,
		}, logger)
	default:
		return store.NewSQLite(cfg.DBPath)
	}
}
