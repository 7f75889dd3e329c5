//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalGate/pkg/config"
	"SignalGate/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideRedisClient,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideCache,
)

var engineSet = wire.NewSet(
	ProvideCatalogue,
	ProvideScorer,
	ProvideResolver,
	ProvideValidator,
	ProvideDetector,
	ProvideAdmission,
	ProvideHistory,
	ProvideGate,
	ProvidePipeline,
	ProvideInspect,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		engineSet,
		ProvideCandidatesHandler,
		ProvideOutcomeQueue,
		ProvideSignalsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
