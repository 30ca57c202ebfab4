package config

import (
	"time"

	"github.com/spf13/viper"

	"careerpath/internal/coverletter"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Matching
	v.SetDefault("matching.vocabularyFile", "")

	// Letter
	v.SetDefault("letter.tone", "professional")
	v.SetDefault("letter.words", coverletter.DefaultWordCount)
	v.SetDefault("letter.role", coverletter.DefaultRole)
	v.SetDefault("letter.company", coverletter.DefaultCompany)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.requestTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.maxBodyBytes", 2*1024*1024) // two documents up to app.maxFileSize each

	// TLS
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	// Auth and rate limiting
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.cleanupEvery", 5*time.Minute)
	v.SetDefault("server.rateLimit.idleTTL", 10*time.Minute)
	v.SetDefault("server.rateLimit.trustedProxies", []string{})

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.pollInterval", 5*time.Minute)
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.apiKeysField", "keys")

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "careerpath")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.matching.enabled", true)
	v.SetDefault("observability.customMetrics.matching.trackDuration", true)
	v.SetDefault("observability.customMetrics.matching.trackScores", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReloads", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
