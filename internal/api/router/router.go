package router

import (
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/handlers"
	"github/chapool/cctp-rebalancer/internal/api/httperrors"
	"github/chapool/cctp-rebalancer/internal/auth"
)

// requestMetrics registers the HTTP collectors once per process.
var requestMetrics = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "rebalancer",
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	})
})

// Init creates the echo instance, its middleware and all routes.
func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = httperrors.ErrorHandler

	s.Echo.Pre(middleware.RemoveTrailingSlash())

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(contextLogger)
	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("HTTP: request")
			return nil
		},
	}))
	s.Echo.Use(requestMetrics())

	s.Router = &api.Router{
		Routes:     nil, // will be populated by handlers.AttachAllRoutes(s)
		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
		APIV1:      s.Echo.Group("/api/v1"),
		APIV1Admin: s.Echo.Group("/api/v1", auth.RequireToken(s.Config.APIToken)),
	}

	handlers.AttachAllRoutes(s)
}

// contextLogger stores a logger carrying the request id in the request
// context, see util.LogFromContext.
func contextLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		l := log.With().Str("id", id).Logger()

		req := c.Request()
		c.SetRequest(req.WithContext(l.WithContext(req.Context())))

		return next(c)
	}
}
