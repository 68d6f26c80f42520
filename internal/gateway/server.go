package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/referral/referral/internal/platform/auth"
	"github.com/referral/referral/internal/platform/middleware"
	"github.com/referral/referral/internal/platform/websocket"
)

// ServerConfig wires NewServer.
type ServerConfig struct {
	Sessions    *Sessions
	Hub         *websocket.Hub
	JWT         auth.JWTConfig
	CORSOrigins []string
	BodyLimit   string
	Version     string
	Logger      zerolog.Logger
}

// NewServer builds the console gateway: health check at /health, dashboard
// routes and the WebSocket under /api/v1.
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(cfg.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(cfg.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": cfg.Version,
		})
	})

	api := e.Group("/api/v1", auth.JWTMiddleware(cfg.JWT))
	NewHandler(cfg.Sessions, cfg.Hub).RegisterRoutes(api)

	if cfg.Hub != nil {
		websocket.NewWebSocketHandler(cfg.Hub, websocket.HandlerConfig{
			Owner: func(c echo.Context) (string, error) {
				s, err := session(c)
				if err != nil {
					return "", err
				}
				_, key, err := cfg.Sessions.Open(s)
				if err != nil {
					return "", httpError(err)
				}
				return key, nil
			},
			AllowedOrigins: cfg.CORSOrigins,
			Logger:         cfg.Logger,
		}).RegisterRoutes(api)
	}
	return e
}
