// Package handler contains the HTTP endpoints of the booking API.  Handlers
// stay thin: they bind and sanity-check the request shape, delegate to the
// core services or repositories, and translate failures into status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/service"
)

var errNoIdentity = errors.New("no authenticated user in context")

// getUserID extracts the authenticated user's ID placed in the context by
// the JWT middleware.  JSON round trips turn numeric claims into float64 and
// some token issuers emit strings, so all three shapes are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return v, nil
	case float64:
		if v > 0 {
			return uint64(v), nil
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return uint64(n), nil
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errNoIdentity
}

// statusOf maps a core service failure to an HTTP status code.
func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError renders a core failure as JSON.  The stable code lets clients
// branch without parsing the human-readable message.
func serviceError(c echo.Context, err error) error {
	var e *service.Error
	if errors.As(err, &e) {
		return c.JSON(statusOf(err), echo.Map{"error": e.Code, "message": e.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
}
