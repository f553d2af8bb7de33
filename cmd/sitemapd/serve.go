package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dacars/sitemapd/internal/api"
	"github.com/dacars/sitemapd/internal/sitemap"
	"github.com/dacars/sitemapd/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /sitemap.xml and the sitemap API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Pages.Watch {
		w, err := watch.New(cfg.Pages.Root, a.cache, logger.Named("watch"), sitemap.TagStatic)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn("page tree watcher disabled", zap.String("root", cfg.Pages.Root), zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	if interval := cfg.BuildInterval(); interval > 0 {
		go runPeriodicBuilds(ctx, a, interval)
	}

	handler := api.NewHandler(a.builder, a.cache, a.store, logger.Named("api"))
	server := api.NewServer(cfg.Server.Port, handler, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return waitForShutdown(cancel, server, errCh)
}

// runPeriodicBuilds refreshes the blog tier in the background so requests
// rarely pay for the content API round trip.
func runPeriodicBuilds(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("starting periodic build")
			a.cache.Invalidate(sitemap.TagDynamic)
			if _, err := a.build(ctx); err != nil {
				logger.Error("periodic build failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func waitForShutdown(cancel context.CancelFunc, server *api.Server, errCh <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case <-sigChan:
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("API server failed", zap.Error(serveErr))
	}
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	return serveErr
}
