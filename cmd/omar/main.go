package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarlabs/omar/internal/config"
	"github.com/omarlabs/omar/internal/conversation"
	"github.com/omarlabs/omar/internal/coordinator"
	"github.com/omarlabs/omar/internal/feedback"
	"github.com/omarlabs/omar/internal/httpapi"
	"github.com/omarlabs/omar/internal/llm"
	"github.com/omarlabs/omar/internal/observability"
	"github.com/omarlabs/omar/internal/ratelimit"
	"github.com/omarlabs/omar/internal/training"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := conversation.NewStore(ctx, cfg.DatabaseURL, cfg.MaxSessions)
	if err != nil {
		logger.Fatal().Err(err).Msg("conversation store init failed")
	}
	defer store.Close()

	ledger, err := feedback.NewLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("feedback ledger init failed")
	}
	defer ledger.Close()

	client, provider, err := llm.NewClient(llm.Config{
		Provider:          cfg.LLMProvider,
		Timeout:           cfg.LLMTimeout,
		HTTPURL:           cfg.LLMHTTPURL,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAIModel,
		OpenAIMaxTokens:   cfg.OpenAIMaxTokens,
		OpenAITemperature: cfg.OpenAITemperature,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("llm client init failed")
	}
	logger.Info().Str("provider", provider).Str("model", cfg.OpenAIModel).Msg("llm provider selected")

	limiter := ratelimit.New(cfg.RateInterval)
	coord := coordinator.New(coordinator.Config{
		ContextTurns: cfg.ContextTurns,
		LLMTimeout:   cfg.LLMTimeout,
		GreetingTTL:  cfg.GreetingTTL,
		Provider:     provider,
	}, store, ledger, limiter, client, metrics, logger)

	trainingSvc := training.New(metrics, logger)

	api := httpapi.New(cfg, coord, store, trainingSvc, metrics, provider, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	coord.StartJanitor(runCtx, time.Minute, cfg.SessionIdleTTL)
	if mem, ok := store.(*conversation.InMemoryStore); ok {
		mem.StartJanitor(runCtx, time.Minute, cfg.SessionIdleTTL, func(n int) {
			metrics.SessionEvents.WithLabelValues("expired").Add(float64(n))
			metrics.ActiveSessions.Set(float64(mem.SessionCount()))
		})
	}

	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
}
