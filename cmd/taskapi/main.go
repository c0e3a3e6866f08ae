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

	"github.com/spf13/pflag"

	"github.com/reinhart/mcpdemo/internal/blobstore"
	"github.com/reinhart/mcpdemo/internal/configuration"
	"github.com/reinhart/mcpdemo/internal/logger"
	"github.com/reinhart/mcpdemo/internal/taskapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to config.toml")
	addr := pflag.String("addr", "", "listen address (overrides task_api.listen_addr)")
	storage := pflag.String("storage", "", "s3 or memory (overrides storage.backend)")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	cfg, loadedPath, err := configuration.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if *addr != "" {
		cfg.TaskAPI.ListenAddr = *addr
	}
	if *storage != "" {
		cfg.Storage.Backend = *storage
	}

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

	store, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.TaskAPI.ListenAddr,
		Handler:           taskapi.NewRouter(taskapi.NewRepository(store), cfg.TaskAPI.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Task API %s listening on %s (storage: %s)", taskapi.Version, srv.Addr, cfg.Storage.Backend)
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

func newBlobStore(ctx context.Context, cfg configuration.StorageConfig) (blobstore.Store, error) {
	if cfg.Backend == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return blobstore.NewMemoryStore(), nil
	}
	store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
		Bucket:      cfg.Bucket,
		Region:      cfg.Region,
		EndpointURL: cfg.EndpointURL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("Using S3 bucket %s in %s", cfg.Bucket, cfg.Region)
	return store, nil
}
