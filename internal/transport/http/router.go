package httptransport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"blog-server-go/internal/platform/observability"
)

// Logger is the logging contract of the HTTP layer.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// RouteLabelKey lets handlers outside the route tree (e.g. NoRoute proxies)
// name the route used in metrics labels.
const RouteLabelKey = "http.route"

// Options configures the HTTP router builder.
type Options struct {
	// Server labels metrics and logs, e.g. "auth" or "gateway".
	Server  string
	Logger  Logger
	Metrics *observability.Metrics
	Debug   bool
	// CORS installs gin-contrib/cors ahead of every route when set.
	CORS *cors.Config
}

// Router bundles together the gin engine and common route groups.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with recovery, logging, metrics and CORS middlewares.
func Build(opts Options) (*Router, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("http router requires a server name")
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	engine.Use(recoveryMiddleware(opts.Logger))
	engine.Use(loggingMiddleware(opts.Server, opts.Logger))
	engine.Use(observabilityMiddleware(opts.Server, opts.Metrics))

	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}

	if opts.CORS != nil {
		engine.Use(cors.New(*opts.CORS))
	}

	return &Router{
		Engine: engine,
		API:    engine.Group(""),
	}, nil
}

// DefaultCORS allows any origin and exposes the given response headers.
func DefaultCORS(expose ...string) *cors.Config {
	return &cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Captcha-Key"},
		ExposeHeaders:   expose,
		MaxAge:          time.Hour,
		// 预检请求直接返回 200
		OptionsResponseStatusCode: http.StatusOK,
	}
}

func recoveryMiddleware(logger Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.Error("[HTTP] %s %s panic: %v", c.Request.Method, c.Request.URL.Path, recovered)
		}
		RespondError(c, http.StatusInternalServerError, "internal server error", nil)
		c.Abort()
	})
}

func loggingMiddleware(server string, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		if logger == nil {
			return
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("[HTTP] %s %s %s -> %d (%s)", server, c.Request.Method, c.Request.URL.Path, status, duration)
			return
		}
		logger.Info("[HTTP] %s %s %s -> %d (%s)", server, c.Request.Method, c.Request.URL.Path, status, duration)
	}
}

func observabilityMiddleware(server string, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		reqCtx, spanEnd := observability.StartSpan(c.Request.Context(), "http."+server, path)
		c.Request = c.Request.WithContext(reqCtx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		if label := c.GetString(RouteLabelKey); label != "" {
			path = label
		}
		metrics.ObserveHTTP(server, c.Request.Method, path, strconv.Itoa(c.Writer.Status()), duration)
	}
}
