package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/metrics"
)

type loggingTransport struct {
	next    http.RoundTripper
	log     *zap.Logger
	metrics *metrics.Metrics
}

// LoggingTransport wraps next with structured logging and request metrics.
func LoggingTransport(next http.RoundTripper, log *zap.Logger, m *metrics.Metrics) http.RoundTripper {
	return &loggingTransport{next: next, log: log, metrics: m}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	dur := time.Since(start)

	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	t.metrics.Request(req.Method, code, dur)

	// metadata only, never payloads or the Authorization header
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", code),
		zap.Duration("dur", dur),
		zap.String("requestId", req.Header.Get(HeaderRequestID)),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Debug("http", fields...)
	return resp, nil
}
