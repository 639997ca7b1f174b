package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"EconDash/internal/domain/repository"
	"EconDash/internal/handler/api"
	internalrepo "EconDash/internal/repository"
	"EconDash/internal/service/econapi"
	"EconDash/internal/session"
	"EconDash/internal/store"
	"EconDash/internal/usecase"
	"EconDash/pkg/cache"
	"EconDash/pkg/config"
	xhttp "EconDash/pkg/http"
	pkgkafka "EconDash/pkg/kafka"
	xlogger "EconDash/pkg/logger"
	"EconDash/pkg/metrics"
	"EconDash/pkg/server"
)

// Core is what every command needs: the three stores and the alert watcher.
type Core struct {
	Config     *config.Config
	Logger     *xlogger.Logger
	Session    *store.Session
	Indicators *store.Indicators
	Alerts     *store.Alerts
	Watcher    *usecase.AlertWatcher
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	l, err := xlogger.New(&xlogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(xlogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideRecorder creates the Prometheus metrics recorder.
func ProvideRecorder(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideMetrics exposes the recorder to the stores and the watcher.
func ProvideMetrics(rec *metrics.Recorder) repository.Metrics {
	return rec
}

// ProvideTokenBackend opens the durable token storage selected by config.
func ProvideTokenBackend(cfg *config.Config) (cache.Service, func(), error) {
	var (
		backend cache.Service
		err     error
	)
	switch cfg.Token.Backend {
	case config.TokenBackendRedis:
		backend, err = cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
	case config.TokenBackendMemory:
		backend = cache.NewMemoryCache()
	default:
		backend, err = cache.NewSQLiteCache(cfg.Token.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("token backend %s: %w", cfg.Token.Backend, err)
	}
	return backend, func() { _ = backend.Close() }, nil
}

// ProvideTokenSlot binds the token slot to its backend.
func ProvideTokenSlot(backend cache.Service, cfg *config.Config) *session.TokenSlot {
	return session.NewTokenSlot(backend, cfg.Token.Key)
}

// ProvideHTTPClient creates the transport client. The bearer token is read
// from the slot on every request.
func ProvideHTTPClient(cfg *config.Config, slot *session.TokenSlot, rec *metrics.Recorder) (*xhttp.Client, error) {
	hc, err := xhttp.NewClient(cfg.API.BaseURL,
		xhttp.WithTimeout(cfg.API.Timeout),
		xhttp.WithCredentials(slot),
		xhttp.WithObserver(rec),
	)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return hc, nil
}

// ProvideEconAPI creates the typed service client.
func ProvideEconAPI(hc *xhttp.Client) *econapi.Client {
	return econapi.New(hc)
}

// ProvideSession creates the session store, restoring a persisted token.
func ProvideSession(
	client *econapi.Client,
	slot *session.TokenSlot,
	logger *xlogger.Logger,
	m repository.Metrics,
) (*store.Session, error) {
	return store.NewSession(context.Background(), client, slot,
		store.WithLogger(logger), store.WithMetrics(m))
}

// ProvideIndicators creates the indicator store.
func ProvideIndicators(client *econapi.Client, logger *xlogger.Logger, m repository.Metrics) *store.Indicators {
	return store.NewIndicators(client, store.WithLogger(logger), store.WithMetrics(m))
}

// ProvideAlerts creates the alert store.
func ProvideAlerts(client *econapi.Client, logger *xlogger.Logger, m repository.Metrics) *store.Alerts {
	return store.NewAlerts(client, store.WithLogger(logger), store.WithMetrics(m))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideTriggerPublisher forwards triggers to Kafka when a producer exists
// and to the log otherwise.
func ProvideTriggerPublisher(cfg *config.Config, producer *pkgkafka.Producer, logger *xlogger.Logger) repository.TriggerPublisher {
	if producer == nil {
		return internalrepo.NewLogTriggerPublisher(logger)
	}
	return internalrepo.NewKafkaTriggerPublisher(producer, cfg.Kafka.TriggerTopic)
}

// ProvideDigest attaches a warn/error digest to the logger when a log topic
// is configured.
func ProvideDigest(cfg *config.Config, producer *pkgkafka.Producer, logger *xlogger.Logger) (*xlogger.Digest, func()) {
	if producer == nil || cfg.Kafka.LogTopic == "" {
		return nil, func() {}
	}
	d := xlogger.NewDigest(xlogger.DigestConfig{
		Topic:     cfg.Kafka.LogTopic,
		Publisher: producer,
	})
	logger.AttachDigest(d)
	return d, d.Close
}

// ProvideAlertWatcher creates the alert watcher on the configured schedule.
func ProvideAlertWatcher(
	cfg *config.Config,
	alerts *store.Alerts,
	sess *store.Session,
	pub repository.TriggerPublisher,
	m repository.Metrics,
	logger *xlogger.Logger,
) (*usecase.AlertWatcher, error) {
	w := usecase.NewAlertWatcher(alerts, sess, pub, m, logger, cfg.Watcher.Refresh)
	if err := w.Schedule(cfg.Watcher.Schedule); err != nil {
		return nil, err
	}
	return w, nil
}

// ProvideDashboardHandler creates the HTTP handler for the dashboard views.
func ProvideDashboardHandler(
	logger *xlogger.Logger,
	sess *store.Session,
	indicators *store.Indicators,
	alerts *store.Alerts,
	watcher *usecase.AlertWatcher,
) *api.DashboardHandler {
	return api.NewDashboardHandler(logger, sess, indicators, alerts, watcher)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.DashboardHandler, logger *xlogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, logger,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(reg, reg, path),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	srv *xhttp.Server,
	watcher *usecase.AlertWatcher,
	digest *xlogger.Digest,
) *server.App {
	return server.New(cfg, logger, srv, watcher, digest)
}

// ProvideTriggerConsumer creates a consumer on the trigger topic. It is not
// part of the injectors: only the tail command needs it.
func ProvideTriggerConsumer(cfg *config.Config, logger *xlogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	consumer, err := pkgkafka.NewConsumer(cfg.Kafka.TriggerTopic, logger,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}
