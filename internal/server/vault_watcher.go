package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careerpath/internal/config"
	"careerpath/internal/errors"
)

// apiKeySource reads the API key secret and its KV v2 version
type apiKeySource interface {
	GetAPIKeys(secrets config.VaultSecrets) ([]string, int64, error)
}

// APIKeyWatcher polls the Vault API key secret and swaps the key store when
// the secret version increases.
type APIKeyWatcher struct {
	mu sync.RWMutex

	source       apiKeySource
	secrets      config.VaultSecrets
	pollInterval time.Duration
	store        *APIKeyStore
	logger       *errors.Logger

	running     bool
	lastVersion int64
	lastError   string
	lastPoll    time.Time
}

// NewAPIKeyWatcher creates a watcher. A non-positive pollInterval defaults to five minutes.
func NewAPIKeyWatcher(source apiKeySource, secrets config.VaultSecrets, pollInterval time.Duration, store *APIKeyStore, logger *errors.Logger) *APIKeyWatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &APIKeyWatcher{
		source:       source,
		secrets:      secrets,
		pollInterval: pollInterval,
		store:        store,
		logger:       logger,
	}
}

// Run polls until ctx is done. Poll failures are logged and keep the current keys.
func (w *APIKeyWatcher) Run(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	w.logger.Info("Vault API key watcher started",
		"secret_path", w.secrets.APIKeys,
		"poll_interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed, err := w.checkForUpdates()
			if err != nil {
				w.logger.LogError(err, "Failed to check Vault for API key updates")
				continue
			}
			if changed {
				w.logger.Info("API keys rotated from Vault",
					"version", w.store.Version(),
					"count", w.store.Len())
			}
		case <-ctx.Done():
			w.logger.Info("Vault API key watcher stopped")
			return nil
		}
	}
}

// checkForUpdates replaces the stored keys when the secret version is newer
// than the last one seen. An empty key list never replaces the store.
func (w *APIKeyWatcher) checkForUpdates() (bool, error) {
	keys, version, err := w.source.GetAPIKeys(w.secrets)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastPoll = time.Now()

	if err != nil {
		w.lastError = err.Error()
		return false, fmt.Errorf("failed to read API key secret: %w", err)
	}
	w.lastError = ""

	if version <= w.lastVersion {
		return false, nil
	}
	w.lastVersion = version

	if len(keys) == 0 {
		w.logger.Warn("Vault API key secret is empty, keeping current keys", "version", version)
		return false, nil
	}

	w.store.Replace(keys, version)
	return true, nil
}

func (w *APIKeyWatcher) setRunning(running bool) {
	w.mu.Lock()
	w.running = running
	w.mu.Unlock()
}

// Status reports the watcher state for the health endpoint
func (w *APIKeyWatcher) Status() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return map[string]any{
		"running":       w.running,
		"poll_interval": w.pollInterval.String(),
		"secret_path":   w.secrets.APIKeys,
		"last_version":  w.lastVersion,
		"last_poll":     w.lastPoll,
		"last_error":    w.lastError,
	}
}
