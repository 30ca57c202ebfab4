package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"careerpath/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// PollInterval controls how often the server re-reads rotated API keys; zero disables polling.
	PollInterval time.Duration `mapstructure:"pollInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	// APIKeys is a KVv2 path whose APIKeysField holds "key1,key2,key3".
	APIKeys      string `mapstructure:"apiKeys"`
	APIKeysField string `mapstructure:"apiKeysField"`
}

// secretReader is the subset of *api.Logical the client needs
type secretReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultClient reads KVv2 secrets
type VaultClient struct {
	reader secretReader
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault. It returns nil, nil when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NopLogger()
	}
	if !cfg.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", cfg.Address,
		"namespace", cfg.Namespace,
		"token_file", cfg.TokenFile,
		"has_token", cfg.Token != "")

	apiConfig := api.DefaultConfig()
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to create vault client", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to connect to vault", err).
			WithContext("address", apiConfig.Address)
	}
	logger.Info("Connected to Vault",
		"address", apiConfig.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return newVaultClient(client.Logical(), logger), nil
}

func newVaultClient(reader secretReader, logger *errors.Logger) *VaultClient {
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &VaultClient{reader: reader, logger: logger}
}

// resolveVaultToken prefers the inline token, then the token file
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to read vault token file", err).
				WithContext("file", cfg.TokenFile)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeVaultUnavailable, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	vc.logger.Debug("Reading secret from Vault", "path", path)
	secret, err := vc.reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the numeric shapes the JSON decoder may produce
func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case nil:
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// StringSliceField extracts a comma-separated string field as a trimmed slice.
func (s *VaultSecret) StringSliceField(key string) ([]string, error) {
	value, ok := s.Data[key]
	if !ok {
		return nil, fmt.Errorf("key '%s' not found in secret", key)
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value for key '%s' is not a string", key)
	}
	return splitKeys(str), nil
}

// GetAPIKeys reads the configured API key secret and returns the keys with the secret version.
func (vc *VaultClient) GetAPIKeys(secrets VaultSecrets) ([]string, int64, error) {
	secret, err := vc.GetSecretV2(secrets.APIKeys)
	if err != nil {
		return nil, 0, err
	}
	field := secrets.APIKeysField
	if field == "" {
		field = "keys"
	}
	keys, err := secret.StringSliceField(field)
	if err != nil {
		return nil, 0, fmt.Errorf("secret %s: %w", secrets.APIKeys, err)
	}
	return keys, secret.Version, nil
}

// ApplyVaultSecrets loads server API keys from Vault into the config. The
// returned client is nil when Vault is disabled.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NopLogger()
	}
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil, nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return nil, err
	}
	if err := applyAPIKeys(client, cfg, logger); err != nil {
		return nil, err
	}
	return client, nil
}

func applyAPIKeys(client *VaultClient, cfg *Config, logger *errors.Logger) error {
	if cfg.Vault.Secrets.APIKeys == "" {
		return nil
	}

	keys, version, err := client.GetAPIKeys(cfg.Vault.Secrets)
	if err != nil {
		logger.LogError(err, "Failed to load API keys from Vault", "path", cfg.Vault.Secrets.APIKeys)
		return errors.NewConfigError(errors.ErrCodeVaultUnavailable, "failed to load API keys from vault", err)
	}

	if len(keys) == 0 {
		logger.Warn("No API keys found in Vault", "path", cfg.Vault.Secrets.APIKeys)
		return nil
	}
	cfg.Server.APIKeys = keys
	logger.Info("API keys loaded from Vault", "count", len(keys), "version", version)
	return nil
}
