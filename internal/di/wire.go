//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"EconDash/pkg/config"
	"EconDash/pkg/server"
)

var coreSet = wire.NewSet(
	// Observability
	ProvideLogger,
	ProvideRegistry,
	ProvideRecorder,
	ProvideMetrics,

	// Infrastructure
	ProvideTokenBackend,
	ProvideTokenSlot,
	ProvideHTTPClient,
	ProvideEconAPI,
	ProvideKafkaProducer,
	ProvideTriggerPublisher,

	// Stores and use cases
	ProvideSession,
	ProvideIndicators,
	ProvideAlerts,
	ProvideAlertWatcher,
)

// InitializeCore wires the stores for one-shot commands.
func InitializeCore(cfg *config.Config) (*Core, func(), error) {
	wire.Build(
		coreSet,
		wire.Struct(new(Core), "*"),
	)
	return nil, nil, nil
}

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideDigest,
		ProvideDashboardHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
