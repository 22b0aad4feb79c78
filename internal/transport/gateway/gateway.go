package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"blog-server-go/internal/platform/config"
	"blog-server-go/internal/platform/observability"
	httptransport "blog-server-go/internal/transport/http"
)

// Options configures the gateway.
type Options struct {
	Config  config.GatewayConfig
	Tokens  SubjectResolver
	Logger  Logger
	Metrics *observability.Metrics
	// MetricsPath, when set, serves Prometheus metrics from the gateway itself.
	MetricsPath string
	Debug       bool
}

// Gateway is the public entry point: CORS, then authorization, then the
// reverse proxy route table.
type Gateway struct {
	router *httptransport.Router
	routes *RouteTable
}

func New(opts Options) (*Gateway, error) {
	if opts.Tokens == nil {
		return nil, errors.New("gateway requires a token resolver")
	}
	whitelist, err := NewWhitelist(opts.Config.Whitelist)
	if err != nil {
		return nil, err
	}
	routes, err := NewRouteTable(opts.Config.Routes, ProxyOptions{
		Timeout:           opts.Config.UpstreamTimeout,
		StripUpstreamCORS: opts.Config.CORS.Enabled,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	var httpLogger httptransport.Logger
	if opts.Logger != nil {
		httpLogger = opts.Logger
	}
	router, err := httptransport.Build(httptransport.Options{
		Server:  "gateway",
		Logger:  httpLogger,
		Metrics: opts.Metrics,
		Debug:   opts.Debug,
	})
	if err != nil {
		return nil, err
	}

	engine := router.Engine
	if opts.Config.CORS.Enabled {
		engine.Use(corsFilter(opts.Config.CORS.MaxAge, opts.Metrics))
	}
	engine.Use(authFilter(opts.Tokens, whitelist, opts.Metrics, opts.Logger))

	engine.GET("/healthz", func(c *gin.Context) {
		httptransport.RespondSuccess(c, http.StatusOK, gin.H{"status": "ok"}, "")
	})
	if opts.MetricsPath != "" && opts.Metrics != nil {
		engine.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}
	engine.NoRoute(routes.dispatch)

	return &Gateway{router: router, routes: routes}, nil
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.router.Engine
}
