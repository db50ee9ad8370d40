//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"perpbot/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, path string) (*App, error) {
	wire.Build(
		provideAppBuilder,
		wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
		provideAppFromBuilder,
	)
	return nil, nil
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config, path string) *AppBuilder {
	return NewAppBuilder(cfg, WithConfigPath(path))
}
