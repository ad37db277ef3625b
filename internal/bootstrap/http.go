package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Addr            string
	Handler         http.Handler // Required
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	// Listener overrides Addr. Test use.
	Listener net.Listener
}

// NewHTTPServer builds the server with the timeouts used in production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// RunHTTP serves until ctx is canceled, then shuts the server down gracefully.
// It returns the first serve or shutdown error.
func RunHTTP(ctx context.Context, cfg HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	server := NewHTTPServer(cfg.Addr, cfg.Handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Listener != nil {
			logger.InfoContext(gctx, "starting HTTP server", "addr", cfg.Listener.Addr().String())
			err = server.Serve(cfg.Listener)
		} else {
			logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}
