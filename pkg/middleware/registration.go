package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	ServiceName   string
	EnableLogging bool
	EnableTracing bool
	EnableMetrics bool
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(serviceName string) MiddlewareConfig {
	return MiddlewareConfig{
		ServiceName:   serviceName,
		EnableLogging: true,
		EnableTracing: true,
		EnableMetrics: true,
	}
}

// RegisterMiddlewares registers all middlewares to the router. Tracing runs
// outermost so request logs carry trace ids.
func RegisterMiddlewares(router *mux.Router, config MiddlewareConfig) {
	if config.EnableTracing {
		router.Use(func(next http.Handler) http.Handler {
			return TracingMiddleware("http-request", next)
		})
	}

	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}

	if config.EnableMetrics {
		router.Use(MetricsMiddleware(config.ServiceName))
	}
}
