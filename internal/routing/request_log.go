package routing

import (
	"net/http"
	"time"

	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// WithRequestLog attaches a request-scoped logger to the context and writes one
// access line per request. Ops routes log at debug.
func WithRequestLog(classifier *Classifier, log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rc := RouteClassUI
		if classifier != nil {
			rc = classifier.Classify(r.URL.Path)
		}
		reqLog := log.With("method", r.Method, "path", r.URL.Path)
		if traceID := traceIDFromRequest(r); traceID != "" {
			reqLog = reqLog.With("trace_id", traceID)
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(logger.ContextWithLogger(r.Context(), reqLog)))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		keyvals := []any{"status", status, "bytes", rec.bytes, "duration", time.Since(start)}
		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Error("request", keyvals...)
		case rc == RouteClassOps:
			reqLog.Debug("request", keyvals...)
		default:
			reqLog.Info("request", keyvals...)
		}
	})
}
