package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"os"

	"k8s.io/utils/env"
)

const (
	tlsVersion12 = "1.2"
	tlsVersion13 = "1.3"
)

type TLSVersion uint16

var _ flag.Value = (*TLSVersion)(nil)

func (v *TLSVersion) String() string {
	if v != nil && uint16(*v) == tls.VersionTLS13 {
		return tlsVersion13
	}
	return tlsVersion12
}

func (v *TLSVersion) Set(s string) error {
	switch s {
	case tlsVersion12:
		*v = TLSVersion(tls.VersionTLS12)
	case tlsVersion13:
		*v = TLSVersion(tls.VersionTLS13)
	default:
		return fmt.Errorf("unsupported TLS version %q: must be %s or %s", s, tlsVersion12, tlsVersion13)
	}
	return nil
}

func (v *TLSVersion) Value() uint16 {
	return uint16(*v)
}

// TLSConfig holds TLS-related configuration.
type TLSConfig struct {
	Cert       string     // Path to TLS certificate
	Key        string     // Path to TLS private key
	SelfSigned bool       // Generate self-signed certificate
	MinVersion TLSVersion // Minimum TLS version

	minVersionErr error
}

// Enabled returns true if TLS is configured (either with certs or self-signed).
func (t *TLSConfig) Enabled() bool {
	return t.HasCerts() || t.SelfSigned
}

// HasCerts returns true if certificate files are configured.
func (t *TLSConfig) HasCerts() bool {
	return t.Cert != "" && t.Key != ""
}

func loadTLSConfig() TLSConfig {
	selfSigned, _ := env.GetBool("TLS_SELF_SIGNED", false)
	t := TLSConfig{
		Cert:       env.GetString("TLS_CERT", ""),
		Key:        env.GetString("TLS_KEY", ""),
		SelfSigned: selfSigned,
		MinVersion: TLSVersion(tls.VersionTLS12),
	}
	if raw := env.GetString("TLS_MIN_VERSION", ""); raw != "" {
		t.minVersionErr = t.MinVersion.Set(raw)
	}
	return t
}

func (t *TLSConfig) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&t.Cert, "tls-cert", t.Cert, "Path to TLS certificate")
	fs.StringVar(&t.Key, "tls-key", t.Key, "Path to TLS private key")
	fs.BoolVar(&t.SelfSigned, "tls-self-signed", t.SelfSigned, "Generate self-signed certificate")
	fs.Var(&t.MinVersion, "tls-min-version", "Minimum TLS version: 1.2 or 1.3 (default: 1.2)")
}

func (t *TLSConfig) validate() error {
	if t.minVersionErr != nil {
		return t.minVersionErr
	}

	if (t.Cert != "") != (t.Key != "") {
		return errors.New("--tls-cert and --tls-key must both be provided together")
	}

	if !t.HasCerts() {
		return nil
	}

	// Explicit certificates win over self-signed generation.
	t.SelfSigned = false
	for _, path := range []string{t.Cert, t.Key} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %s: %w", path, err)
		}
	}

	return nil
}
