package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// CacheConfig controls the caching headers ETag sets on successful reads.
type CacheConfig struct {
	MaxAge time.Duration
	// Vary lists request headers the representation depends on.
	Vary []string
}

// DefaultCacheConfig suits the test catalog: definitions change only when an
// operator edits them, and responses depend on the caller's token.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge: 5 * time.Minute,
		Vary:   []string{"Authorization"},
	}
}

type bufferedWriter struct {
	w      http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (b *bufferedWriter) Header() http.Header        { return b.w.Header() }
func (b *bufferedWriter) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *bufferedWriter) WriteHeader(code int)        { b.status = code }

func (b *bufferedWriter) flush() error {
	b.w.WriteHeader(b.status)
	if b.buf.Len() == 0 {
		return nil
	}
	_, err := b.w.Write(b.buf.Bytes())
	return err
}

// ETag buffers GET and HEAD responses, tags successful ones with a weak
// ETag over the body and answers a matching If-None-Match with 304. It
// replaces the no-store Cache-Control set by SecurityHeaders with a private
// max-age, so it belongs only on routes that serve no per-user records.
func ETag(cfg CacheConfig) echo.MiddlewareFunc {
	cacheControl := fmt.Sprintf("private, max-age=%d", int(cfg.MaxAge.Seconds()))
	vary := strings.Join(cfg.Vary, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			bw := &bufferedWriter{w: orig, status: http.StatusOK}
			res.Writer = bw
			err := next(c)
			res.Writer = orig
			if err != nil {
				// Nothing buffered reaches the client; the error handler
				// writes the response.
				res.Committed = false
				return err
			}
			if bw.status != http.StatusOK {
				return bw.flush()
			}

			tag := weakETag(bw.buf.Bytes())
			h := res.Header()
			h.Set("ETag", tag)
			h.Set("Cache-Control", cacheControl)
			if vary != "" {
				h.Set("Vary", vary)
			}

			if inm := req.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, tag) {
				h.Del("Content-Type")
				h.Del("Content-Length")
				res.Status = http.StatusNotModified
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}
			return bw.flush()
		}
	}
}

func weakETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:16])
}

// etagMatch compares an If-None-Match value against tag using the weak
// comparison, accepting comma-separated lists and "*".
func etagMatch(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == strings.TrimPrefix(tag, "W/") {
			return true
		}
	}
	return false
}
