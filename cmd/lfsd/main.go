package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lfsd/internal/auth"
	"lfsd/internal/config"
	"lfsd/internal/lfs"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

func logLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func newStore(cfg *config.Config) (lfs.ContentStore, error) {
	switch cfg.Storage.Type {
	case "s3":
		return lfs.NewS3Store(lfs.S3Config{
			Endpoint:  cfg.Storage.S3.Endpoint,
			Bucket:    cfg.Storage.S3.Bucket,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Secure:    cfg.Storage.S3.Secure,
		})
	default:
		// Resolve to an absolute root for easier debugging.
		absRoot, err := filepath.Abs(cfg.Storage.Filesystem.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve storage root: %w", err)
		}
		return lfs.NewLocalStore(absRoot)
	}
}

func newAuthEngine(cfg *config.Config) auth.AuthEngine {
	if cfg.Auth.Type == "basic" {
		return auth.NewBasicAuthEngine(cfg.Auth.Username, cfg.Auth.Password)
	}
	return auth.NewNoneAuthEngine()
}

func Run(ctx context.Context) error {

	configPath := flag.String("config", "", "path to a YAML configuration file")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	storageRoot := flag.String("root", "", "filesystem storage root (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *listenAddr != "" {
		cfg.Listen.HTTP = *listenAddr
	}
	if *storageRoot != "" {
		cfg.Storage.Type = "filesystem"
		cfg.Storage.Filesystem.Root = *storageRoot
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           logLevel(cfg.Logging.Level),
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
	})

	slog.SetDefault(slog.New(handler))

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create content store: %w", err)
	}

	server, err := lfs.NewServer(lfs.Config{
		Store:     store,
		Auth:      newAuthEngine(cfg),
		PublicURL: cfg.Server.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create LFS server: %w", err)
	}

	router := server.Handler()

	httpServer := &http.Server{
		Addr:              cfg.Listen.HTTP,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
	}

	httpsServer := &http.Server{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Addr:              cfg.Listen.HTTPS,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		return httpsServer.Shutdown(context.Background())
	})

	eg.Go(func() error {
		<-ctx.Done()
		return httpServer.Shutdown(context.Background())
	})

	eg.Go(func() error {
		if cfg.Listen.CertFile == "" || cfg.Listen.KeyFile == "" {
			slog.Debug("Skipping HTTPS service because no certificate was provided")
			return nil
		}

		slog.Info("Starting LFS HTTPS server", "addr", cfg.Listen.HTTPS)
		err := httpsServer.ListenAndServeTLS(cfg.Listen.CertFile, cfg.Listen.KeyFile)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	eg.Go(func() error {
		slog.Info("Starting LFS HTTP server", "addr", cfg.Listen.HTTP)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("lfsd exited with error", "error", err)
	}
}
