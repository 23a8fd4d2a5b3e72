//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/charmops/charmops-backend/internal/app"
	"github.com/charmops/charmops-backend/internal/repository"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeSeedRunner() (*SeedRunner, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		NewSeedRunner,
	))
}

func InitializeHousekeepingRunner() (*HousekeepingRunner, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		repository.NewPresenceRepository,
		repository.NewSessionRepository,
		NewHousekeepingRunner,
	))
}
