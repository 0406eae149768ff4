// Command onglet serves the tab corpus: it attaches to a running Chrome,
// aggregates the content of every open tab, and answers questions about
// them over HTTP or MCP stdio.
//
// Usage:
//
//	onglet -config onglet.yaml              # full config
//	onglet -control-url ws://127.0.0.1:9222 # attach to a running Chrome
//	onglet -mcp                             # serve MCP over stdio instead of HTTP
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/onglet"
	"github.com/hazyhaar/onglet/internal/browser"
	"github.com/hazyhaar/onglet/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to onglet.yaml config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "sqlite database path (overrides config)")
	controlURL := flag.String("control-url", "", "Chrome DevTools WebSocket URL (overrides config)")
	endpoint := flag.String("endpoint", "", "remote answering endpoint (overrides config)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &onglet.Config{}
	if *configPath != "" {
		loaded, err := onglet.LoadConfigFile(*configPath)
		if err != nil {
			logger.Error("onglet: config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *controlURL != "" {
		cfg.Browser.ControlURL = *controlURL
	}
	if *endpoint != "" {
		cfg.AnswerEndpoint = *endpoint
	}

	if err := run(ctx, logger, cfg, *mcpStdio); err != nil {
		logger.Error("onglet: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *onglet.Config, mcpStdio bool) error {
	cfg.Browser.Logger = logger
	mgr := browser.NewManager(cfg.Browser)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer mgr.Close()

	var st *store.Store
	if cfg.DatabasePath != "" {
		var err error
		st, err = store.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer st.Close()
	}

	svc := onglet.New(mgr, st, *cfg, logger)
	svc.Start(ctx)
	listen := svc.Config().Listen

	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{Name: "onglet", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		logger.Info("onglet: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	svc.RegisterHTTP(r)

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("onglet: HTTP listening", "addr", listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("onglet: shutdown", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
