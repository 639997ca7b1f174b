// Injector implementations for wire.go, written in the shape `wire` emits.
// Keep in lockstep with the wire.Build sets there; running `go generate` in
// this package replaces the file with wire's own output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"EconDash/pkg/config"
	"EconDash/pkg/server"
)

// Injectors from wire.go:

// InitializeCore wires the stores for one-shot commands.
func InitializeCore(cfg *config.Config) (*Core, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	service, cleanup, err := ProvideTokenBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	tokenSlot := ProvideTokenSlot(service, cfg)
	registry := ProvideRegistry()
	recorder := ProvideRecorder(registry)
	client, err := ProvideHTTPClient(cfg, tokenSlot, recorder)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	econapiClient := ProvideEconAPI(client)
	metrics := ProvideMetrics(recorder)
	session, err := ProvideSession(econapiClient, tokenSlot, logger, metrics)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	indicators := ProvideIndicators(econapiClient, logger, metrics)
	alerts := ProvideAlerts(econapiClient, logger, metrics)
	producer, cleanup2, err := ProvideKafkaProducer(cfg, registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	triggerPublisher := ProvideTriggerPublisher(cfg, producer, logger)
	alertWatcher, err := ProvideAlertWatcher(cfg, alerts, session, triggerPublisher, metrics, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	core := &Core{
		Config:     cfg,
		Logger:     logger,
		Session:    session,
		Indicators: indicators,
		Alerts:     alerts,
		Watcher:    alertWatcher,
	}
	return core, func() {
		cleanup2()
		cleanup()
	}, nil
}

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	service, cleanup, err := ProvideTokenBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	tokenSlot := ProvideTokenSlot(service, cfg)
	registry := ProvideRegistry()
	recorder := ProvideRecorder(registry)
	client, err := ProvideHTTPClient(cfg, tokenSlot, recorder)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	econapiClient := ProvideEconAPI(client)
	metrics := ProvideMetrics(recorder)
	session, err := ProvideSession(econapiClient, tokenSlot, logger, metrics)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	indicators := ProvideIndicators(econapiClient, logger, metrics)
	alerts := ProvideAlerts(econapiClient, logger, metrics)
	producer, cleanup2, err := ProvideKafkaProducer(cfg, registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	triggerPublisher := ProvideTriggerPublisher(cfg, producer, logger)
	alertWatcher, err := ProvideAlertWatcher(cfg, alerts, session, triggerPublisher, metrics, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	dashboardHandler := ProvideDashboardHandler(logger, session, indicators, alerts, alertWatcher)
	httpServer := ProvideHTTPServer(cfg, dashboardHandler, logger, registry)
	digest, cleanup3 := ProvideDigest(cfg, producer, logger)
	app := ProvideApp(cfg, logger, httpServer, alertWatcher, digest)
	return app, func() {
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
