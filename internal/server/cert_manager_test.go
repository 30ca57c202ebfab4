package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/config"
)

// writeSelfSigned writes a self-signed CA-capable certificate and key valid for ttl.
func writeSelfSigned(t *testing.T, dir, name string, ttl time.Duration) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(ttl),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, name+".crt")
	keyFile = filepath.Join(dir, name+".key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestCertificateManagerLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", 48*time.Hour)

	cm := NewCertificateManager(config.TLSConfig{Mode: config.TLSModeServer, CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	cert, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)

	ttl, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.InDelta(t, (48 * time.Hour).Hours(), ttl.Hours(), 0.1)

	writeSelfSigned(t, dir, "server", 10*24*time.Hour)
	require.NoError(t, cm.ReloadCertificates())
	ttl, err = cm.CheckExpiry()
	require.NoError(t, err)
	assert.Greater(t, ttl, 9*24*time.Hour)

	require.NoError(t, os.WriteFile(keyFile, []byte("garbage"), 0o600))
	assert.Error(t, cm.ReloadCertificates())

	metrics := cm.GetMetrics()
	assert.Equal(t, int64(3), metrics.ReloadCount)
	assert.Equal(t, int64(1), metrics.ReloadFailureCount)
	assert.False(t, metrics.LastReloadSuccess)

	_, err = cm.GetServerCertificate(nil)
	assert.NoError(t, err, "failed reload keeps the previous certificate")
}

func TestCertificateManagerStartFailsWithoutFiles(t *testing.T) {
	cm := NewCertificateManager(config.TLSConfig{Mode: config.TLSModeServer, CertFile: "missing.crt", KeyFile: "missing.key"}, nil, nil)
	assert.Error(t, cm.Start())
}

func TestBuildTLSConfigMutual(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", 48*time.Hour)
	caFile, _ := writeSelfSigned(t, dir, "ca", 48*time.Hour)

	tlsCfg := config.TLSConfig{
		Mode:             config.TLSModeMutual,
		CertFile:         certFile,
		KeyFile:          keyFile,
		CAFile:           caFile,
		MinVersion:       "1.3",
		ClientAuthPolicy: "verify",
	}
	cm := NewCertificateManager(tlsCfg, nil, nil)
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	built, err := buildTLSConfig(tlsCfg, cm)
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), built.MinVersion)
	assert.Equal(t, tls.VerifyClientCertIfGiven, built.ClientAuth)
	require.NotNil(t, built.GetConfigForClient)

	perConn, err := built.GetConfigForClient(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, perConn.ClientCAs)

	server, err := buildTLSConfig(config.TLSConfig{Mode: config.TLSModeServer}, cm)
	require.NoError(t, err)
	assert.Equal(t, tls.NoClientCert, server.ClientAuth)
	assert.Nil(t, server.GetConfigForClient)
}

func TestCertWatcherTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", time.Hour)

	reloaded := make(chan struct{}, 1)
	w := NewCertWatcher([]string{certFile, keyFile, ""}, 20*time.Millisecond, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	assert.True(t, w.IsRunning())
	assert.Equal(t, []string{certFile, keyFile}, w.WatchedFiles())
	assert.Error(t, w.Start())

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(certFile, []byte("rotated"), 0o600))
	require.NoError(t, os.Chtimes(certFile, future, future))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop())
}

func TestStartReleasesResourcesWhenListenFails(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = occupied.Close() }()
	_, port, err := net.SplitHostPort(occupied.Addr().String())
	require.NoError(t, err)

	certFile, keyFile := writeSelfSigned(t, t.TempDir(), "server", 48*time.Hour)
	s, err := NewServer(testAppConfig(), ServerConfig{
		Host: "127.0.0.1",
		Port: port,
		TLSConfig: config.TLSConfig{
			Mode:       config.TLSModeServer,
			CertFile:   certFile,
			KeyFile:    keyFile,
			AutoReload: config.AutoReloadConfig{Enabled: true, DebounceDelay: 10 * time.Millisecond},
		},
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, BurstCapacity: 1},
	}, nil, nil)
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.ErrorContains(t, err, "failed to listen")

	require.NotNil(t, s.CertificateManager)
	assert.False(t, s.CertificateManager.fileWatcher.IsRunning())
	select {
	case <-s.CertificateManager.stopExpiry:
	default:
		t.Fatal("certificate expiry loop still running")
	}
	select {
	case <-s.RateLimiter.done:
	default:
		t.Fatal("rate limiter cleanup still running")
	}
}
