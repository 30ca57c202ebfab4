package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"careerpath/internal/config"
	"careerpath/internal/errors"
	"careerpath/internal/observability"
)

// CertificateManager holds the serving certificate and client CA pool loaded
// from disk and swaps them when the files change.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time
	lastReloadTime   time.Time

	fileWatcher *CertWatcher
	config      config.TLSConfig

	reloadCallbacks []ReloadCallback
	metrics         *observability.Metrics
	logger          *errors.Logger
	stopExpiry      chan struct{}
	stopOnce        sync.Once

	reloadCount        int64
	reloadSuccessCount int64
	reloadFailureCount int64
	lastReloadSuccess  bool
	lastReloadError    string
}

// ReloadCallback is called after every reload attempt
type ReloadCallback func(success bool, err error)

// CertificateMetrics is a snapshot of reload bookkeeping
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// NewCertificateManager creates a manager for tlsConfig. metrics and logger may be nil.
func NewCertificateManager(tlsConfig config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	if metrics == nil {
		metrics = &observability.Metrics{}
	}
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &CertificateManager{
		config:     tlsConfig,
		metrics:    metrics,
		logger:     logger,
		stopExpiry: make(chan struct{}),
	}
}

// Start loads the certificates and, when auto reload is enabled, watches the files
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	go cm.expiryLoop(time.Minute)

	if !cm.config.AutoReload.Enabled {
		return nil
	}

	watcher := NewCertWatcher(
		[]string{cm.config.CertFile, cm.config.KeyFile, cm.config.CAFile},
		cm.config.AutoReload.DebounceDelay,
		cm.triggerReload,
		cm.logger,
	)
	if err := watcher.Start(); err != nil {
		cm.stopOnce.Do(func() { close(cm.stopExpiry) })
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	cm.fileWatcher = watcher
	return nil
}

// Stop stops the file watcher and expiry reporting
func (cm *CertificateManager) Stop() error {
	cm.stopOnce.Do(func() { close(cm.stopExpiry) })
	if cm.fileWatcher != nil {
		return cm.fileWatcher.Stop()
	}
	return nil
}

// GetServerCertificate is a tls.Config.GetCertificate hook
func (cm *CertificateManager) GetServerCertificate(_ *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	if time.Now().After(cm.serverCertExpiry) {
		cm.logger.Warn("Serving an expired certificate", "expiry", cm.serverCertExpiry)
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the current client CA pool, nil outside mutual mode
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ReloadCertificates reloads from disk, keeping the old material on failure
func (cm *CertificateManager) ReloadCertificates() error {
	if err := cm.loadCertificates(); err != nil {
		cm.recordReload(false, err)
		return err
	}
	return nil
}

func (cm *CertificateManager) AddReloadCallback(callback ReloadCallback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCallbacks = append(cm.reloadCallbacks, callback)
}

// CheckExpiry returns the time until the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCertExpiry.IsZero() {
		return 0, fmt.Errorf("no certificate expiry information available")
	}
	return time.Until(cm.serverCertExpiry), nil
}

// GetMetrics returns a snapshot of reload bookkeeping
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return CertificateMetrics{
		ReloadCount:        cm.reloadCount,
		ReloadSuccessCount: cm.reloadSuccessCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadSuccess:  cm.lastReloadSuccess,
		LastReloadError:    cm.lastReloadError,
	}
}

func (cm *CertificateManager) loadCertificates() error {
	cert, err := tls.LoadX509KeyPair(cm.config.CertFile, cm.config.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	var pool *x509.CertPool
	if cm.config.Mode == config.TLSModeMutual {
		pool, err = loadCAPool(cm.config.CAFile)
		if err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.serverCert = &cert
	cm.caCertPool = pool
	cm.serverCertExpiry = leaf.NotAfter
	cm.lastReloadTime = time.Now()
	cm.mu.Unlock()

	cm.recordReload(true, nil)
	cm.logger.Info("Certificates loaded",
		"server_cert_expiry", leaf.NotAfter,
		"subject", leaf.Subject.CommonName)
	return nil
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", caFile)
	}
	return pool, nil
}

// recordReload updates bookkeeping, metrics and callbacks for one attempt
func (cm *CertificateManager) recordReload(success bool, err error) {
	cm.mu.Lock()
	cm.reloadCount++
	if success {
		cm.reloadSuccessCount++
		cm.lastReloadError = ""
	} else {
		cm.reloadFailureCount++
		cm.lastReloadError = err.Error()
	}
	cm.lastReloadSuccess = success
	expiry := cm.serverCertExpiry
	callbacks := append([]ReloadCallback(nil), cm.reloadCallbacks...)
	cm.mu.Unlock()

	ctx := context.Background()
	cm.metrics.RecordCertReload(ctx, success)
	if !expiry.IsZero() {
		cm.metrics.RecordCertExpiry(ctx, expiry)
	}

	for _, callback := range callbacks {
		go callback(success, err)
	}
}

// triggerReload is the file watcher callback
func (cm *CertificateManager) triggerReload() {
	if err := cm.ReloadCertificates(); err != nil {
		cm.logger.LogError(err, "Failed to reload certificates")
	}
}

func (cm *CertificateManager) expiryLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.mu.RLock()
			expiry := cm.serverCertExpiry
			cm.mu.RUnlock()
			cm.metrics.RecordCertExpiry(context.Background(), expiry)
		case <-cm.stopExpiry:
			return
		}
	}
}
