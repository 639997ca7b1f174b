package server

import (
	"context"
	"errors"

	"EconDash/internal/usecase"
	"EconDash/pkg/config"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

// App encapsulates the long-running parts of the dashboard: the HTTP shell,
// the alert watcher and the log digest.
type App struct {
	cfg        *config.Config
	logger     *xlogger.Logger
	httpServer *xhttp.Server
	watcher    *usecase.AlertWatcher
	digest     *xlogger.Digest
}

// New creates a new App. watcher and digest may be nil.
func New(
	cfg *config.Config,
	logger *xlogger.Logger,
	httpServer *xhttp.Server,
	watcher *usecase.AlertWatcher,
	digest *xlogger.Digest,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		watcher:    watcher,
		digest:     digest,
	}
}

// Serve starts the HTTP shell and the alert watcher and blocks until ctx is
// cancelled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	if a.httpServer == nil {
		return errors.New("no http server configured")
	}
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", xlogger.Error(err))
		a.shutdown()
		return err
	}
	a.startWatcher()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.logger.Error("http server error", xlogger.Error(runErr))
	}

	a.shutdown()
	return runErr
}

// Watch runs only the alert watcher until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	if a.watcher == nil {
		return errors.New("no alert watcher configured")
	}
	a.startWatcher()
	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) startWatcher() {
	if a.watcher == nil {
		return
	}
	a.watcher.Start()
	a.logger.Info("alert checks scheduled", xlogger.String("schedule", a.cfg.Watcher.Schedule))
}

// shutdown gracefully stops all services. It runs on a fresh context since
// the caller's is usually already cancelled.
func (a *App) shutdown() {
	a.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.watcher != nil {
		if err := a.watcher.Stop(ctx); err != nil {
			a.logger.Warn("alert watcher stop error", xlogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", xlogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	// flushed last so shutdown warnings are included
	a.digest.Close()
}
