package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"careerpath/internal/coverletter"
)

// EnvPrefix prefixes every environment variable read by the config loader.
const EnvPrefix = "CAREERPATH"

// Config holds all application configuration
// Server API key precedence:
// 1. Vault (if configured)
// 2. Config file values
// 3. Environment variables (CAREERPATH_SERVER_APIKEYS)
// 4. Defaults
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Letter        LetterConfig        `mapstructure:"letter"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// MatchingConfig selects the vocabulary used for scoring.
type MatchingConfig struct {
	// VocabularyFile points at a JSON vocabulary; empty uses the built-in tables.
	VocabularyFile string `mapstructure:"vocabularyFile"`
}

// LetterConfig holds cover letter defaults applied when a request leaves a field blank.
type LetterConfig struct {
	Tone    string `mapstructure:"tone"`
	Words   int    `mapstructure:"words"`
	Role    string `mapstructure:"role"`
	Company string `mapstructure:"company"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxBodyBytes    int64         `mapstructure:"maxBodyBytes"`

	TLS TLSConfig `mapstructure:"tls"`

	// APIKeys enables X-API-Key authentication when non-empty
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string `mapstructure:"mode"` // disabled, server, mutual
	CertFile         string `mapstructure:"certFile"`
	KeyFile          string `mapstructure:"keyFile"`
	CAFile           string `mapstructure:"caFile"`
	MinVersion       string `mapstructure:"minVersion"`       // 1.2, 1.3
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // require, request, verify

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls certificate hot reload from disk
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	CleanupEvery   time.Duration `mapstructure:"cleanupEvery"`
	IdleTTL        time.Duration `mapstructure:"idleTTL"`

	// TrustedProxies lists the CIDRs (or single IPs) of reverse proxies whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string `mapstructure:"trustedProxies"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles groups of application metrics
type CustomMetricsConfig struct {
	Matching       MatchingMetricsConfig       `mapstructure:"matching"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

type MatchingMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackScores   bool `mapstructure:"trackScores"`
}

type InfrastructureMetricsConfig struct {
	TrackRateLimits  bool `mapstructure:"trackRateLimits"`
	TrackCertReloads bool `mapstructure:"trackCertReloads"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from defaults, config file and environment
// variables. CAREERPATH_CONFIG names an explicit config file.
func LoadConfig() (*Config, error) {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return LoadConfigFrom(path)
	}
	log.Println("[CONFIG] Starting configuration loading process")
	return load(viper.New())
}

// LoadConfigFrom reads an explicit config file instead of searching the default paths.
func LoadConfigFrom(path string) (*Config, error) {
	log.Printf("[CONFIG] Loading configuration from %s", path)
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicitFile := v.ConfigFileUsed() != ""
	if !explicitFile {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/careerpath/")
		v.AddConfigPath("$HOME/.careerpath")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); explicitFile || !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.App.LogLevel)
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app.maxFileSize must be positive")
	}

	if _, err := coverletter.ParseTone(c.Letter.Tone); err != nil {
		return fmt.Errorf("letter defaults: %w", err)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerMin <= 0 || c.Server.RateLimit.BurstCapacity <= 0) {
		return fmt.Errorf("rate limit requestsPerMin and burstCapacity must be positive when enabled")
	}

	if _, err := c.Server.RateLimit.TrustedProxyPrefixes(); err != nil {
		return err
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
