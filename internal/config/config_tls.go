package config

import (
	"crypto/tls"
	"fmt"
)

// TLS modes accepted by server.tls.mode
const (
	TLSModeDisabled = "disabled"
	TLSModeServer   = "server"
	TLSModeMutual   = "mutual"
)

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.Mode {
	case TLSModeDisabled:
		return nil
	case TLSModeServer:
		if err := requireKeyPair(t, "server mode"); err != nil {
			return err
		}
	case TLSModeMutual:
		if err := requireKeyPair(t, "mutual mode"); err != nil {
			return err
		}
		if t.CAFile == "" {
			return fmt.Errorf("caFile is required for mutual TLS mode")
		}
		if _, err := t.ClientAuthType(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	_, err := t.TLSMinVersion()
	return err
}

func requireKeyPair(t TLSConfig, mode string) error {
	if t.CertFile == "" || t.KeyFile == "" {
		return fmt.Errorf("certFile and keyFile are required for %s", mode)
	}
	return nil
}

// TLSMinVersion maps minVersion to a crypto/tls constant; empty means 1.2.
func (t TLSConfig) TLSMinVersion() (uint16, error) {
	switch t.MinVersion {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}
}

// ClientAuthType maps clientAuthPolicy to a crypto/tls constant; empty means require.
func (t TLSConfig) ClientAuthType() (tls.ClientAuthType, error) {
	switch t.ClientAuthPolicy {
	case "", "require":
		return tls.RequireAndVerifyClientCert, nil
	case "request":
		return tls.RequestClientCert, nil
	case "verify":
		return tls.VerifyClientCertIfGiven, nil
	default:
		return 0, fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
	}
}
