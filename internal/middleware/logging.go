package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logging writes one structured line per request.
func Logging(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			entry := log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"bytes":    sw.bytes,
				"duration": time.Since(start).String(),
				"remote":   r.RemoteAddr,
			})
			switch {
			case sw.status >= 500:
				entry.Error("request")
			case sw.status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
		})
	}
}
