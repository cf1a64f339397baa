// Package tls builds the server's TLS configuration from certificate files
// or a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNoCertificate is returned when TLS is enabled without a certificate
// and auto-generation is off.
var ErrNoCertificate = errors.New("tls enabled but no certificate configured")

// Config selects the server certificate and TLS policy.
type Config struct {
	CertFile string
	KeyFile  string
	// ClientCAFile enables client certificate verification against this CA.
	ClientCAFile string
	// AutoGenerate creates a self-signed certificate for Hosts when no
	// CertFile/KeyFile is set. Meant for development.
	AutoGenerate bool
	Hosts        []string
	ValidFor     time.Duration
	// MinVersion is "1.2" or "1.3".
	MinVersion string
}

// ParseVersion maps "1.2" and "1.3" to crypto/tls constants. Empty means 1.2.
func ParseVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported tls version %q (want 1.2 or 1.3)", v)
	}
}

// SecureCipherSuites returns the TLS 1.2 AEAD suites. TLS 1.3 suites are not
// configurable in crypto/tls.
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	}
}

// Load builds a *tls.Config for the listener.
func Load(cfg Config) (*tls.Config, error) {
	minVersion, err := ParseVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	var cert tls.Certificate
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load certificate: %w", err)
		}
	case cfg.CertFile != "" || cfg.KeyFile != "":
		return nil, errors.New("cert_file and key_file must be set together")
	case cfg.AutoGenerate:
		cert, err = GenerateSelfSigned(cfg.Hosts, cfg.ValidFor)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoCertificate
	}

	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
		CipherSuites: SecureCipherSuites(),
	}
	if cfg.ClientCAFile != "" {
		pool, err := LoadCAPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

// LoadCAPool reads PEM certificates from caFile.
func LoadCAPool(caFile string) (*x509.CertPool, error) {
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates in %s", caFile)
	}
	return pool, nil
}

// NotAfter returns the earliest expiry among the configured certificates.
func NotAfter(cfg *tls.Config) (time.Time, error) {
	var earliest time.Time
	for _, c := range cfg.Certificates {
		leaf := c.Leaf
		if leaf == nil {
			if len(c.Certificate) == 0 {
				continue
			}
			parsed, err := x509.ParseCertificate(c.Certificate[0])
			if err != nil {
				return time.Time{}, fmt.Errorf("parse certificate: %w", err)
			}
			leaf = parsed
		}
		if earliest.IsZero() || leaf.NotAfter.Before(earliest) {
			earliest = leaf.NotAfter
		}
	}
	if earliest.IsZero() {
		return time.Time{}, errors.New("no certificates configured")
	}
	return earliest, nil
}

// CertificateNotAfter reads the expiry of a PEM certificate file.
func CertificateNotAfter(certFile string) (time.Time, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return time.Time{}, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return time.Time{}, fmt.Errorf("%s: no PEM block", certFile)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}
