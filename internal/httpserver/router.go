package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/travel_social/internal/domain"
	"github.com/Skotchmaster/travel_social/internal/metrics"
	"github.com/Skotchmaster/travel_social/internal/middleware"
	loggingmw "github.com/Skotchmaster/travel_social/pkg/middleware/logging"
)

type Deps struct {
	Logger         *slog.Logger
	AuthHandler    *AuthHTTP
	Authenticator  *middleware.Authenticator
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	// Ready reports whether the backing stores answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the shared middleware chain.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.HTTPErrorHandler = ErrorHandler

	e.Use(d.Metrics.Instrument())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(echomw.Recover())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(d.MetricsHandler))
	}

	api := e.Group("/api/v1", d.Authenticator.Middleware())
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "UP"})
	})

	auth := api.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh-token", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut)

	admin := api.Group("/admin", middleware.RequireAuthenticated)
	admin.GET("/who-am-i", d.AuthHandler.WhoAmI)
	admin.GET("/dashboard", d.AuthHandler.Dashboard,
		middleware.RequireAuthority(string(domain.PermLocationManage)))
	admin.DELETE("/users/:id", d.AuthHandler.DeleteUser,
		middleware.RequireAuthority(string(domain.PermUserManage)))
}
