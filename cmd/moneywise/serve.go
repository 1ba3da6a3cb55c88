package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moneywise-app/moneywise/internal/agent"
	"github.com/moneywise-app/moneywise/internal/completion"
	"github.com/moneywise-app/moneywise/internal/config"
	"github.com/moneywise-app/moneywise/internal/guardrails"
	"github.com/moneywise-app/moneywise/internal/insight"
	"github.com/moneywise-app/moneywise/internal/ledger"
	"github.com/moneywise-app/moneywise/internal/logger"
	"github.com/moneywise-app/moneywise/internal/memory"
	"github.com/moneywise-app/moneywise/internal/memory/embedder/hash"
	"github.com/moneywise-app/moneywise/internal/server"
	"github.com/moneywise-app/moneywise/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	apiKey := cfg.Anthropic.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("anthropic api key is required (config anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	client, err := completion.NewAnthropic(apiKey, cfg.Anthropic.Model, 0)
	if err != nil {
		return err
	}

	recaller := memory.NewManager(hash.New(), memory.Config{
		Enabled:       cfg.Memory.Enabled,
		MaxRecall:     cfg.Memory.MaxRecall,
		MinSimilarity: float32(cfg.Memory.MinSimilarity),
	}, log)

	limiter, err := guardrails.NewLimiter(guardrails.Config{
		TurnsPerWindow: cfg.Guardrails.ChatTurnsPerMinute,
		Window:         time.Minute,
	}, log)
	if err != nil {
		return err
	}
	defer limiter.Close()

	engine := ledger.New(store, log)
	executor := agent.NewExecutor(engine, store, log)
	contexts := agent.NewContextBuilder(store, recaller, log)
	orchestrator := agent.NewOrchestrator(store, contexts, agent.NewRegistry(), executor, client, recaller, log)
	analyzer := insight.NewAnalyzer(store, client, recaller, log)
	auth := server.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.TTL)

	api := server.New(store, engine, orchestrator, analyzer, limiter, auth, log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
