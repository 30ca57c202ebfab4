package server

import (
	"net/netip"
	"sync/atomic"
	"time"

	"careerpath/internal/config"
	"careerpath/internal/errors"
	"careerpath/internal/matching"
	"careerpath/internal/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager

	// API Authentication, replaced in place when Vault rotates the keys
	APIKeys    *APIKeyStore
	keyWatcher *APIKeyWatcher

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// trustedProxies may set X-Forwarded-For and X-Real-IP
	trustedProxies []netip.Prefix

	// Scoring and letter defaults
	Engine         *matching.Engine
	LetterDefaults types.LetterOptions

	Logger *errors.Logger

	startedAt time.Time
	counters  requestCounters
}

type requestCounters struct {
	match       atomic.Int64
	coverLetter atomic.Int64
	analyze     atomic.Int64
	failed      atomic.Int64
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	TLSConfig       config.TLSConfig
	APIKeys         []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	RateLimit       *config.RateLimitConfig

	// Vault, when set together with vault.secrets.apiKeys, keeps APIKeys in
	// sync with the secret.
	Vault *config.VaultClient
}

// ServerConfigFromApp copies the server section of the application config.
func ServerConfigFromApp(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		TLSConfig:       cfg.Server.TLS,
		APIKeys:         cfg.Server.APIKeys,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestSize:  cfg.Server.MaxBodyBytes,
		RateLimit:       &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, engine *matching.Engine, logger *errors.Logger) (*Server, error) {
	if logger == nil {
		logger = errors.NopLogger()
	}
	if engine == nil {
		engine = matching.NewEngine(nil, logger)
	}

	letterDefaults, err := types.DefaultLetterOptions(appCfg.Letter)
	if err != nil {
		return nil, err
	}

	var trustedProxies []netip.Prefix
	if cfg.RateLimit != nil {
		if trustedProxies, err = cfg.RateLimit.TrustedProxyPrefixes(); err != nil {
			return nil, err
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(*cfg.RateLimit, logger)
	}

	keys := NewAPIKeyStore(cfg.APIKeys)

	var watcher *APIKeyWatcher
	if cfg.Vault != nil && appCfg.Vault.Secrets.APIKeys != "" {
		watcher = NewAPIKeyWatcher(cfg.Vault, appCfg.Vault.Secrets, appCfg.Vault.PollInterval, keys, logger)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		APIKeys:         keys,
		keyWatcher:      watcher,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		trustedProxies:  trustedProxies,
		Engine:          engine,
		LetterDefaults:  letterDefaults,
		Logger:          logger,
		startedAt:       time.Now(),
	}, nil
}
