package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// Logging writes one access-log line per request. Server errors log at error
// level, client errors at warn, everything else at debug so probes and
// scrapes stay quiet by default.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := newStatusRecorder(w)
			next.ServeHTTP(sr, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.Path(r.URL.Path),
				logging.Int("status", sr.status),
				logging.Int("bytes", sr.bytes),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}

			switch {
			case sr.status >= 500:
				logger.Error("request", fields...)
			case sr.status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Debug("request", fields...)
			}
		})
	}
}
