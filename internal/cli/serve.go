package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ollamachat/internal/config"
	"ollamachat/internal/httpapi"
	"ollamachat/internal/manager"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// serve runs the HTTP server until ctx is canceled, then shuts down and
// stops the supervised backend.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	settings := cfg.Settings()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Store:   config.NewStore(settings),
		Backend: cfg.Backend,
		Logger:  &log,
	})

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.Server.CORSOrigins, cfg.Server.CORSMethods, cfg.Server.CORSHeaders)

	addr := settings.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = mgr.Close(context.Background())
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("backend", settings.BackendURL).
			Str("model", settings.ModelName).Msg("ollamachat listening")
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("backend stop on shutdown failed")
	}
	return serveErr
}
