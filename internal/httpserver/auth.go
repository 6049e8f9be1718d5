package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/authctx"
	"github.com/Skotchmaster/travel_social/internal/middleware"
	"github.com/Skotchmaster/travel_social/internal/service"
	"github.com/Skotchmaster/travel_social/internal/transport"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

type AuthHTTP struct {
	Sessions *service.SessionService
	Accounts *service.AccountService
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.Wrap(apperr.CodeInvalidInput, err)
	}

	pair, err := h.Sessions.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewAuthenticationResponse(pair))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return apperr.Wrap(apperr.CodeInvalidInput, err)
	}
	if req.RefreshToken == "" {
		return apperr.ErrTokenInvalid
	}

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewAuthenticationResponse(pair))
}

// LogOut needs the access token in the Authorization header; the refresh
// token in the body is optional.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	access := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if access == "" {
		l.Warn("logout_error", "status", 401, "reason", "missing bearer token")
		return apperr.ErrTokenInvalid
	}

	var req transport.LogoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", "status", 400, "error", err)
		return apperr.Wrap(apperr.CodeInvalidInput, err)
	}

	if err := h.Sessions.Logout(ctx, access, req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTP) WhoAmI(c echo.Context) error {
	auth, ok := authctx.FromContext(c.Request().Context())
	if !ok {
		return apperr.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, transport.WhoAmIResponse{
		UserID:      auth.Principal.ID,
		Username:    auth.Principal.Username,
		Authorities: auth.Authorities.Sorted(),
	})
}

func (h *AuthHTTP) Dashboard(c echo.Context) error {
	auth, _ := authctx.FromContext(c.Request().Context())
	return c.JSON(http.StatusOK, transport.MessageResponse{
		Message: "Welcome to the admin dashboard, " + auth.Principal.Username,
	})
}

func (h *AuthHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_delete_user")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		l.Warn("delete_user_error", "status", 400, "id", c.Param("id"))
		return apperr.ErrInvalidInput
	}

	if err := h.Accounts.Delete(ctx, uint(id)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
