package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// healthHandler reports liveness, the loaded vocabulary and certificate state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	vocab := s.Engine.Vocabulary()
	response := map[string]any{
		"status":  "healthy",
		"service": "careerpath",
		"version": s.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"vocabulary": map[string]any{
			"skills":   len(vocab.Skills()),
			"keywords": len(vocab.Keywords()),
			"aliases":  len(vocab.Aliases()),
		},
	}

	status := http.StatusOK
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, _ := certStatus["healthy"].(bool); !healthy {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	if s.keyWatcher != nil {
		response["api_keys"] = s.keyWatcher.Status()
	}

	writeJSONResponse(w, nil, status, response)
}

// checkCertificateHealth summarizes certificate expiry; nil without TLS
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	autoReload := map[string]any{"enabled": s.TLSConfig.AutoReload.Enabled}
	if watcher := s.CertificateManager.fileWatcher; watcher != nil {
		autoReload["running"] = watcher.IsRunning()
		autoReload["watched_files"] = watcher.WatchedFiles()
	}
	certStatus["auto_reload"] = autoReload

	metrics := s.CertificateManager.GetMetrics()
	certStatus["reloads"] = map[string]any{
		"total":        metrics.ReloadCount,
		"success":      metrics.ReloadSuccessCount,
		"failure":      metrics.ReloadFailureCount,
		"last_time":    metrics.LastReloadTime,
		"last_success": metrics.LastReloadSuccess,
		"last_error":   metrics.LastReloadError,
	}

	return certStatus
}

// statsHandler provides request counters and limit settings
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "careerpath",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"requests": map[string]any{
			"match":        s.counters.match.Load(),
			"cover_letter": s.counters.coverLetter.Load(),
			"analyze":      s.counters.analyze.Load(),
			"failed":       s.counters.failed.Load(),
		},
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"request_timeout":        s.RequestTimeout.String(),
		},
		"auth": map[string]any{
			"enabled":     s.APIKeys.Len() > 0,
			"keys":        s.APIKeys.Len(),
			"key_version": s.APIKeys.Version(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSONResponse(w, nil, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// describeValidationError turns validator output into one readable line
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds maximum of %s", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s is below minimum of %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed '%s' check", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// writeJSONResponse encodes v with the given status; encoding failures are
// recorded on span when one is given.
func writeJSONResponse(w http.ResponseWriter, span oteltrace.Span, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && span != nil {
		span.RecordError(err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, errMsg, code, message string, statusCode int) {
	writeJSONResponse(w, nil, statusCode, ErrorResponse{
		Error:   errMsg,
		Code:    code,
		Message: message,
	})
}
