//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/logging"
)

// InitializeContainer creates a fully wired client container
func InitializeContainer(cfg *config.Config, logger *logging.Logger) (*Container, error) {
	wire.Build(ClientSet)
	return nil, nil // Wire will replace this
}

// InitializeDevServer creates the reference backend
func InitializeDevServer(cfg *config.Config, logger *logging.Logger) (*DevServerContainer, error) {
	wire.Build(DevServerSet)
	return nil, nil // Wire will replace this
}
