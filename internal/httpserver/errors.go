package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/i18n"
	"github.com/Skotchmaster/travel_social/internal/transport"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

// echoCodes maps framework errors (unknown route, bad method, bind failures)
// onto the closest application code.
var echoCodes = map[int]apperr.Code{
	http.StatusBadRequest:   apperr.CodeInvalidInput,
	http.StatusUnauthorized: apperr.CodeUnauthorized,
	http.StatusForbidden:    apperr.CodeForbidden,
}

// ErrorHandler renders every error as {"code", "message"} with the message
// localized from Accept-Language. Causes of uncategorized errors are logged
// and never sent to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	req := c.Request()
	tag := i18n.Match(req.Header.Get("Accept-Language"))

	var (
		status int
		body   transport.ErrorResponse
		he     *echo.HTTPError
		ae     *apperr.Error
	)
	if !errors.As(err, &ae) && errors.As(err, &he) {
		status = he.Code
		if code, ok := echoCodes[he.Code]; ok {
			body = transport.ErrorResponse{Code: int(code), Message: i18n.Message(tag, code.MessageKey())}
		} else {
			body = transport.ErrorResponse{Code: he.Code, Message: fmt.Sprint(he.Message)}
		}
	} else {
		code := apperr.CodeOf(err)
		status = code.HTTPStatus()
		body = transport.ErrorResponse{Code: int(code), Message: i18n.Message(tag, code.MessageKey())}

		l := logging.FromContext(req.Context())
		switch {
		case code == apperr.CodeUncategorized:
			l.Error("unhandled_error", "status", status, "error", err)
		case code.Retriable():
			c.Response().Header().Set("Retry-After", "1")
		}
	}

	if req.Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
