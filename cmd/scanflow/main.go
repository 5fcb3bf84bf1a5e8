package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/scanflow/internal/auth"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/config"
	"github.com/claude/scanflow/internal/document"
	"github.com/claude/scanflow/internal/mcp"
	"github.com/claude/scanflow/internal/recommend"
	"github.com/claude/scanflow/internal/server"
	"github.com/claude/scanflow/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	issueToken := flag.String("issue-token", "", "print a bearer token for the given uid and exit")
	tokenEmail := flag.String("email", "", "email claim for -issue-token")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if *issueToken != "" {
		tok, err := tokens.Issue(auth.Caller{UID: *issueToken, Email: *tokenEmail})
		if err != nil {
			log.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	log.Info("scanflow starting", "version", Version, "driver", cfg.Database.Driver)

	ctx := context.Background()
	docs, closeStore, err := openStore(ctx, cfg.Database, *migrateOnly, log)
	if err != nil {
		log.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeStore()
	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Services
	coachSvc := coach.NewService(docs, log)
	var gen recommend.Generator
	if cfg.AI.APIKey != "" {
		gen = recommend.NewOpenAI(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.MaxTokens)
		log.Info("recommendations enabled", "model", cfg.AI.Model)
	} else {
		log.Warn("ai.api_key not set: chat requests will fail")
	}
	chatSvc := recommend.NewService(docs, gen, log)

	srv := server.New(coachSvc, chatSvc, tokens, log)
	srv.SetMCP(mcp.HTTPHandler(mcp.New(coachSvc, Version, log)))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openStore opens the configured document store. Migrations run for
// postgres only; with migrateOnly set the store is not connected.
func openStore(ctx context.Context, cfg config.DatabaseConfig, migrateOnly bool, log *slog.Logger) (document.Store, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			return nil, noop, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
		if migrateOnly {
			return nil, noop, nil
		}
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		log.Info("database connected")
		return db, db.Close, nil
	case config.DriverSQLite:
		if migrateOnly {
			return nil, noop, nil
		}
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		log.Info("sqlite database opened", "path", cfg.Path)
		return db, func() { _ = db.Close() }, nil
	default:
		log.Warn("using in-memory document store: data is lost on exit")
		return document.NewMemory(), noop, nil
	}
}
