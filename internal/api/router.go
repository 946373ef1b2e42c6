package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/otpchat/chat-api/internal/api/handler"
	"github.com/otpchat/chat-api/internal/api/middleware"
	"github.com/otpchat/chat-api/internal/core/ports"
)

// APIPrefix is the versioned root of every REST route.
const APIPrefix = "/api/v1"

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth          ports.AuthService
	Authenticator ports.Authenticator
	Messages      ports.MessageService
	// Checks are probed by /health/ready.
	Checks []handler.DependencyCheck
	Log    zerolog.Logger
	// RequestLog enables a zerolog access line per request.
	RequestLog bool
	// Registry receives the HTTP metrics. Nil means the default registry,
	// which also holds the metrics package collectors.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	if d.RequestLog {
		e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
				d.Log.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("request")
				return nil
			},
		}))
	}
	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "otpchat", DoNotUseRequestPathFor404: true}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		promCfg.Registerer = d.Registry
		gatherer = d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	gate := middleware.Auth(d.Authenticator)

	// --- User routes ---
	users := handler.NewUserHandler(d.Auth, d.Log)
	u := e.Group(APIPrefix + "/user")
	u.GET("/health", users.Health)
	u.POST("/register", users.Register)
	u.POST("/verify-otp", users.VerifyOTP)
	u.POST("/login", users.Login)
	u.POST("/logout", users.Logout, middleware.OptionalAuth(d.Authenticator))
	u.GET("/current-user", users.CurrentUser, gate)

	// --- Message routes ---
	messages := handler.NewMessageHandler(d.Messages)
	m := e.Group(APIPrefix+"/message", gate)
	m.POST("/send", messages.Send)
	m.GET("", messages.List)
	m.DELETE("/clear-all", messages.Clear)
	m.DELETE("/:messageId", messages.Delete)

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks...).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	return e
}
