package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"outbreak/application/catalog"
	"outbreak/application/service"
	"outbreak/application/state"
	"outbreak/application/state/memory"
	"outbreak/application/state/sqlite"
	"outbreak/auth"
	"outbreak/config"
	"outbreak/server"
	"outbreak/server/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var repo state.Repository
	if cfg.DatabasePath != "" {
		store, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}()
		repo = store
		slog.InfoContext(ctx, "using sqlite store", "path", cfg.DatabasePath)
	} else {
		repo = memory.NewStore()
		slog.WarnContext(ctx, "DATABASE_PATH not set, state will not survive restarts")
	}

	cat := catalog.NewLoader(cfg.CatalogDir)
	game, err := service.NewGameService(service.DefaultConfig(), repo, cat, service.SimpleValidator{}, nil, slog.Default())
	if err != nil {
		log.Fatalf("init game service: %v", err)
	}

	tokens, err := auth.NewManager([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL, nil)
	if err != nil {
		log.Fatalf("init token manager: %v", err)
	}

	handler := server.Route(game, tokens, domain.EndpointOptions{
		PingInterval: cfg.PingInterval,
		IdleTimeout:  cfg.IdleTimeout,
	})
	s := server.NewServer(cfg.ListenAddr(), handler)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", s.Addr())

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	slog.InfoContext(ctx, "server shutdown complete")
}
