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

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/reinhart/mcpdemo/internal/bridge"
	"github.com/reinhart/mcpdemo/internal/configuration"
	"github.com/reinhart/mcpdemo/internal/logger"
	"github.com/reinhart/mcpdemo/internal/taskapi"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to config.toml")
	transport := pflag.String("transport", "", "http or stdio (overrides mcp.transport)")
	addr := pflag.String("addr", "", "listen address for the http transport (overrides mcp.listen_addr)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	cfg, loadedPath, err := configuration.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if *transport != "" {
		cfg.MCP.Transport = *transport
	}
	if *addr != "" {
		cfg.MCP.ListenAddr = *addr
	}

	// stdout carries the protocol on stdio, so logs always go to stderr.
	logger.Init()
	if cfg.Agent.Debug || *debug {
		logger.DebugMode = true
	}
	logger.SetOutput(os.Stderr)
	if loadedPath != "" {
		logger.Info("Loaded config from %s", loadedPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := taskapi.NewClient(cfg.TaskAPI.URL, cfg.TaskAPI.APIKey)
	server := bridge.NewServer(api, version)
	logger.Info("Bridging Task API at %s", cfg.TaskAPI.URL)

	switch cfg.MCP.Transport {
	case "stdio":
		logger.Info("Serving MCP over stdio")
		if err := bridge.ServeStdio(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case "http":
		return serveHTTP(ctx, cfg.MCP.ListenAddr, server)
	default:
		return fmt.Errorf("unsupported transport %q", cfg.MCP.Transport)
	}
}

func serveHTTP(ctx context.Context, addr string, server *mcp.Server) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", bridge.HTTPHandler(server))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving MCP streamable HTTP on %s/mcp", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
