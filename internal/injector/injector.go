//go:build wireinject
// +build wireinject

// The build tag keeps the stub out of the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/driftsync/driftsync/internal/core/observability/log"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelInfo)
}
