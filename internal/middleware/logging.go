// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Logs the method, path, and duration of each request.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			method := r.Method

			next.ServeHTTP(w, r)

			duration := time.Since(start)
			logger.WithFields(logrus.Fields{
				"method":   method,
				"path":     path,
				"duration": duration,
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a client joining a room session, once the upgrade
// and room checks have passed.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr, roomID string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"room":   roomID,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs the end of a room session. err is nil for a
// normal peer close.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr, roomID string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"room":   roomID,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
