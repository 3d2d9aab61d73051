package cache

import (
	"bytes"
	"net/http"

	"github.com/otforge/config-registry/pkg/site"
)

// captureWriter tees the response body and records the status so a
// successful read can enter the cache after the handler runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware serves GET responses out of c, keyed by the resolved site
// plus the request URI so one site's cached reads never answer another's.
// Only 200 responses enter the cache; non-GET requests pass straight
// through. Responses carry X-Cache: HIT or MISS.
func CacheMiddleware(c *LRUCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := site.SiteFromContext(r.Context()) + ":" + r.URL.RequestURI()
			if body, ok := c.Get(key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}

			cw := &captureWriter{ResponseWriter: w}
			cw.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(cw, r)

			if cw.status == http.StatusOK {
				c.Set(key, cw.buf.Bytes())
			}
		})
	}
}
