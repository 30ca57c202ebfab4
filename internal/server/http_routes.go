package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"careerpath/internal/errors"
	"careerpath/internal/observability"
)

type requestIDKey struct{}

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware(om)
	sizeLimit := s.requestSizeLimitMiddleware()
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(sizeLimit(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("POST /match", protected(s.createMatchHandler(om)))
	mux.HandleFunc("POST /cover-letter", protected(s.createCoverLetterHandler(om)))
	mux.HandleFunc("POST /analyze", protected(s.createAnalyzeHandler(om)))

	return mux
}

// Handler assembles the full middleware stack around the routes.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	var handler http.Handler = s.setupRoutes(om)
	if s.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, s.RequestTimeout, `{"error":"Request timeout"}`)
	}
	handler = om.HTTPMiddleware()(handler)
	return requestIDMiddleware(handler)
}

// requestIDMiddleware propagates the caller's X-Request-ID or assigns a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.APIKeys.Len() == 0 {
			next(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", s.clientIP(r),
				"request_id", requestIDFrom(r.Context()))
			writeErrorResponse(w, "Missing API key", errors.ErrCodeMissingAPIKey, "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys.Contains(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", s.clientIP(r),
				"api_key_prefix", maskAPIKey(apiKey),
				"request_id", requestIDFrom(r.Context()))
			writeErrorResponse(w, "Invalid API key", "", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// extractAPIKey reads X-API-Key, falling back to an Authorization Bearer token
func extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
