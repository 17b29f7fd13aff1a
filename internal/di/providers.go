// Package di assembles the client and the reference backend with
// google/wire.
package di

import (
	"net/http"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/api"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/app"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/devserver"
	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/logging"
)

// MetricsNamespace prefixes the client's gateway metrics.
const MetricsNamespace = "kgclient"

// Container holds the client and what front ends need next to it.
type Container struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *api.Metrics
	Client  *app.Client
}

// DevServerContainer holds the reference backend.
type DevServerContainer struct {
	Config  *config.Config
	Logger  *logging.Logger
	Store   *devserver.Store
	Handler http.Handler
}

// ClientSet provides a fully wired Client.
var ClientSet = wire.NewSet(
	ProvideZapLogger,
	ProvideHTTPClient,
	ProvideGatewayMetrics,
	ProvideGateway,
	app.NewClient,
	wire.Struct(new(Container), "*"),
)

// DevServerSet provides the reference backend's HTTP handler.
var DevServerSet = wire.NewSet(
	ProvideZapLogger,
	devserver.NewStore,
	ProvideResponder,
	devserver.NewServer,
	devserver.NewMetrics,
	ProvideDevServerHandler,
	wire.Struct(new(DevServerContainer), "*"),
)

// ProvideZapLogger exposes the zap logger inside a logging.Logger.
func ProvideZapLogger(l *logging.Logger) *zap.Logger {
	return l.Logger
}

// ProvideHTTPClient returns the client used for backend calls. Timeouts are
// applied per call by the gateway.
func ProvideHTTPClient() *http.Client {
	return &http.Client{}
}

// ProvideGatewayMetrics creates the gateway metrics.
func ProvideGatewayMetrics() *api.Metrics {
	return api.NewMetrics(MetricsNamespace)
}

// ProvideGateway builds the HTTP gateway and decorates it with metrics and
// tracing. Tracing is outermost so spans cover the metrics bookkeeping.
func ProvideGateway(cfg *config.Config, client *http.Client, metrics *api.Metrics, logger *zap.Logger) api.Gateway {
	var gw api.Gateway = api.NewHTTPGateway(cfg, client, logger.Named("gateway"))
	gw = api.WithMetrics(gw, metrics)
	return api.WithTracing(gw, api.DefaultTracer())
}

// ProvideResponder returns the echo responder behind the chat breaker.
func ProvideResponder(cfg *config.Config, logger *zap.Logger) devserver.Responder {
	return devserver.WithBreaker(devserver.EchoResponder{}, devserver.BreakerSettings{
		Name:             "chat",
		FailureThreshold: cfg.DevServer.ChatFailureThreshold,
		OpenTimeout:      cfg.DevServer.ChatOpenTimeout,
	}, logger)
}

// ProvideDevServerHandler mounts the backend routes.
func ProvideDevServerHandler(cfg *config.Config, srv *devserver.Server, metrics *devserver.Metrics, logger *zap.Logger) http.Handler {
	return devserver.NewRouter(srv, cfg.DevServer, metrics, logger)
}
