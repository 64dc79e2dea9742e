package middleware

import (
	"net/http"
	"time"

	"family-locator/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger registra una línea por request. Debe ir después de chimw.RequestID
// y de AuthContext para incluir request_id y user_id.
func RequestLogger(log logger.Logger, skipPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := map[string]any{
					"request_id": chimw.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"latency":    time.Since(start).String(),
					"ip":         r.RemoteAddr,
				}
				if c, ok := GetClaims(r.Context()); ok {
					fields["user_id"] = c.UserID
				}

				switch {
				case status >= 500:
					log.Error("request", fields)
				case status >= 400:
					log.Warn("request", fields)
				default:
					log.Info("request", fields)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
