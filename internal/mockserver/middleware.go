package mockserver

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// withAuth rejects requests without a live bearer token with 401.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		exp, known := s.tokens[token]
		if known && exp <= s.now().Unix() {
			delete(s.tokens, token)
			known = false
		}
		s.mu.Unlock()

		if !known {
			respondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r)
	}
}
