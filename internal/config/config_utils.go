package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings or the environment
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks trims and drops blank keys, and reads a
// comma-separated CAREERPATH_SERVER_APIKEYS when nothing else set them.
func (c *Config) applyServerAPIKeyFallbacks() {
	c.Server.APIKeys = splitKeys(strings.Join(c.Server.APIKeys, ","))
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(EnvPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = serviceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func serviceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs where configuration came from, masking secrets
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_MATCHING_VOCABULARYFILE",
		EnvPrefix + "_LETTER_TONE",
		EnvPrefix + "_LETTER_WORDS",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_APIKEYS",
		EnvPrefix + "_VAULT_ENABLED",
		EnvPrefix + "_VAULT_TOKEN",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if isSensitiveEnv(envVar) {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", envVar, value)
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	if c.Matching.VocabularyFile != "" {
		log.Printf("[CONFIG] Vocabulary: %s", c.Matching.VocabularyFile)
	} else {
		log.Println("[CONFIG] Vocabulary: built-in")
	}
	log.Printf("[CONFIG] Letter defaults: tone=%s words=%d", c.Letter.Tone, c.Letter.Words)
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Server API keys: %d configured", len(c.Server.APIKeys))
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "token")
}
