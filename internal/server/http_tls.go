package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"careerpath/internal/config"
	"careerpath/internal/observability"
)

// configureTLS loads certificates for the server and mutual modes and sets
// httpServer.TLSConfig. Disabled mode leaves the server on plain HTTP.
func (s *Server) configureTLS(httpServer *http.Server, om *observability.ObservabilityManager) error {
	switch s.TLSConfig.Mode {
	case config.TLSModeDisabled, "":
		return nil
	case config.TLSModeServer, config.TLSModeMutual:
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certManager := NewCertificateManager(s.TLSConfig, om.GetMetrics(), s.Logger)
	if err := certManager.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	certManager.AddReloadCallback(func(success bool, err error) {
		if success {
			s.Logger.Info("TLS certificates reloaded successfully")
		} else {
			s.Logger.LogError(err, "Failed to reload TLS certificates")
		}
	})
	s.CertificateManager = certManager

	tlsConfig, err := buildTLSConfig(s.TLSConfig, certManager)
	if err != nil {
		_ = certManager.Stop()
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// buildTLSConfig serves certificates through cm so reloads apply to new
// handshakes. In mutual mode the client CA pool is also read per handshake.
func buildTLSConfig(cfg config.TLSConfig, cm *CertificateManager) (*tls.Config, error) {
	minVersion, err := cfg.TLSMinVersion()
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: cm.GetServerCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if cfg.Mode != config.TLSModeMutual {
		return tlsConfig, nil
	}

	clientAuth, err := cfg.ClientAuthType()
	if err != nil {
		return nil, err
	}
	tlsConfig.ClientAuth = clientAuth
	tlsConfig.ClientCAs = cm.GetCACertPool()

	base := tlsConfig.Clone()
	tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
		perConn := base.Clone()
		perConn.ClientCAs = cm.GetCACertPool()
		return perConn, nil
	}

	return tlsConfig, nil
}
