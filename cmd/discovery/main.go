package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextstage/discovery/internal/agent"
	"github.com/nextstage/discovery/internal/anthropic"
	"github.com/nextstage/discovery/internal/api"
	"github.com/nextstage/discovery/internal/brief"
	"github.com/nextstage/discovery/internal/config"
	"github.com/nextstage/discovery/internal/events"
	"github.com/nextstage/discovery/internal/extractor"
	"github.com/nextstage/discovery/internal/session"
	"github.com/nextstage/discovery/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("discovery starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.UpstreamTimeout)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel, "timeout", cfg.UpstreamTimeout)

	// Turn extractor and brief generator share the client
	ext := extractor.New(llm, slog.Default())
	briefs := brief.New(llm, slog.Default())

	// Session registry — bounded, idle sessions expire
	registry := session.NewRegistry(cfg.SessionCapacity, cfg.SessionIdleTTL, func() *agent.Conversation {
		return agent.NewConversation(ext, slog.Default())
	}, slog.Default())
	slog.Info("session registry ready", "capacity", cfg.SessionCapacity, "idle_ttl", cfg.SessionIdleTTL)

	// Database (optional — discovery runs without persistence, just no audit trail)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("database not configured — running without persistence")
	}

	// NATS (optional — no events means no downstream follow-up, nothing else breaks)
	var pub *events.Publisher
	if cfg.NatsURL != "" {
		var err error
		pub, err = events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without events")
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, registry, briefs, db, pub, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("discovery ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("discovery stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
