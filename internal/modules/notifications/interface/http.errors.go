package transport

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/shared/auth"
	"notificationRelay/internal/shared/httputil"
)

// errorMapper translates the notification error taxonomy. A consumed token
// matches both NotFound and Conflict and is reported as not found.
var errorMapper = httputil.NewErrorMapper().
	WithMapping(domain.ErrUnauthorized, http.StatusUnauthorized, "invalid or missing credential").
	WithMapping(domain.ErrForbidden, http.StatusForbidden, "forbidden").
	WithMapping(domain.ErrNotFound, http.StatusNotFound, "not found").
	WithMapping(domain.ErrMissingReceiver, http.StatusBadRequest, "missing user identity").
	WithMapping(domain.ErrBadPayload, http.StatusBadRequest, "bad request").
	WithMapping(domain.ErrConflict, http.StatusConflict, "conflict")

func fail(c echo.Context, op string, err error) error {
	httpErr := errorMapper.HTTPError(err)
	attrs := []any{
		slog.String("op", op),
		slog.Int("status", httpErr.Code),
		slog.String("ip", c.RealIP()),
		slog.Any("error", err),
	}
	if httpErr.Code >= http.StatusInternalServerError {
		slog.Error("notification request failed", attrs...)
	} else {
		slog.Warn("notification request rejected", attrs...)
	}
	return httpErr
}

func credential(c echo.Context) string {
	return auth.ExtractBearerToken(c.Request())
}
