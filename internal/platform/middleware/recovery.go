package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

// Recovery turns a handler panic into a JSON 500 and logs it with the
// route, caller and stack. http.ErrAbortHandler is re-raised so net/http can
// abort the connection as the handler intended.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				panicErr, ok := r.(error)
				if !ok {
					panicErr = fmt.Errorf("%v", r)
				}

				req := c.Request()
				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Err(panicErr).
					Str("request_id", rid).
					Str("method", req.Method).
					Str("route", c.Path()).
					Str("user_id", auth.UserIDFromContext(req.Context())).
					Bytes("stack", debug.Stack()).
					Bool("alert", true).
					Msg("handler panic")

				err = echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
					"kind":  "internal",
				})
			}()
			return next(c)
		}
	}
}
