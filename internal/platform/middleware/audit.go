package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

// Audit logs one "record_access" line per request to the routes it wraps:
// who asked, for which assessment record or subject, and how it ended. It is
// attached per route to the endpoints that expose stored assessments.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			ctx := req.Context()
			rid, _ := c.Get("request_id").(string)
			logger.Info().
				Str("type", "audit").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(ctx)).
				Strs("user_roles", auth.RolesFromContext(ctx)).
				Str("action", auditAction(req.Method, c.Path())).
				Str("record_id", c.Param("id")).
				Str("subject_id", c.QueryParam("user_id")).
				Str("scope", c.QueryParam("scope")).
				Str("remote_ip", c.RealIP()).
				Int("status", responseStatus(c, err)).
				Msg("record_access")

			return err
		}
	}
}

func auditAction(method, route string) string {
	switch {
	case strings.HasSuffix(route, "/rescore"):
		return "rescore"
	case method == http.MethodPost:
		return "create"
	case strings.HasSuffix(route, "/:id"):
		return "read"
	default:
		return "search"
	}
}

// responseStatus is the status the client will see. The echo error handler
// has not run yet when err is non-nil, so it is derived from err.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
