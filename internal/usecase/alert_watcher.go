package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

// AlertSource is the slice of the alert store the watcher drives.
type AlertSource interface {
	CheckAlerts(ctx context.Context) (json.RawMessage, error)
	FetchAlerts(ctx context.Context) error
}

// SessionGate lets the watcher skip runs while logged out and drop a
// rejected session.
type SessionGate interface {
	IsLoggedIn() bool
	Logout(ctx context.Context) error
}

// AlertWatcher periodically asks the service to evaluate the user's alert
// rules and forwards whatever fired.
type AlertWatcher struct {
	cron    *cron.Cron
	alerts  AlertSource
	session SessionGate
	pub     drepo.TriggerPublisher
	metrics drepo.Metrics
	logger  *xlogger.Logger
	refresh bool
	timeout time.Duration

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// NewAlertWatcher creates the watcher. Schedules accept an optional seconds
// field and descriptors such as "@every 5m".
func NewAlertWatcher(
	alerts AlertSource,
	session SessionGate,
	pub drepo.TriggerPublisher,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	refresh bool,
) *AlertWatcher {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{l: logger}
	return &AlertWatcher{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		alerts:  alerts,
		session: session,
		pub:     pub,
		metrics: metrics,
		logger:  logger,
		refresh: refresh,
		timeout: 2 * xhttp.DefaultTimeout,
	}
}

// Schedule registers the check on spec.
func (w *AlertWatcher) Schedule(spec string) error {
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return fmt.Errorf("register alert check %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (w *AlertWatcher) Start() {
	w.cron.Start()
	w.logger.Info("alert watcher started")
}

// Stop stops scheduling and waits for a running check, bounded by ctx.
func (w *AlertWatcher) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info("alert watcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for alert check: %w", ctx.Err())
	}
}

// LastRun returns when the last check finished and its error.
func (w *AlertWatcher) LastRun() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr
}

func (w *AlertWatcher) tick() {
	if !w.session.IsLoggedIn() {
		w.logger.Debug("alert check skipped: logged out")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	_, _ = w.RunOnce(ctx)
}

// RunOnce performs one check: evaluate, publish triggers, then refresh the
// rule list so last-triggered times are current. A 401 ends the session.
func (w *AlertWatcher) RunOnce(ctx context.Context) ([]models.AlertTrigger, error) {
	start := time.Now()
	triggers, err := w.run(ctx)

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastErr = err
	w.mu.Unlock()

	w.metrics.RecordLatency("watcher.check", time.Since(start).Seconds())
	if err != nil {
		w.metrics.RecordError("watcher.check")
		w.logger.Warn("alert check failed", xlogger.Error(err))
		if xhttp.IsUnauthorized(err) {
			if lerr := w.session.Logout(ctx); lerr != nil {
				w.logger.Error("logout after 401 failed", xlogger.Error(lerr))
			}
		}
		return nil, err
	}

	w.logger.Info("alert check done", xlogger.Int("triggered", len(triggers)))
	return triggers, nil
}

func (w *AlertWatcher) run(ctx context.Context) ([]models.AlertTrigger, error) {
	raw, err := w.alerts.CheckAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("check alerts: %w", err)
	}
	triggers, err := models.DecodeTriggers(raw)
	if err != nil {
		return nil, err
	}
	w.metrics.RecordTriggers(len(triggers))

	if len(triggers) > 0 {
		if err := w.pub.PublishTriggers(ctx, triggers); err != nil {
			return triggers, fmt.Errorf("publish triggers: %w", err)
		}
	}

	if w.refresh && len(triggers) > 0 {
		if err := w.alerts.FetchAlerts(ctx); err != nil {
			return triggers, fmt.Errorf("refresh alerts: %w", err)
		}
	}
	return triggers, nil
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	l *xlogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kv(keysAndValues), xlogger.Error(err))...)
}

func kv(pairs []interface{}) []xlogger.Field {
	fields := make([]xlogger.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, xlogger.Any(fmt.Sprint(pairs[i]), pairs[i+1]))
	}
	return fields
}
