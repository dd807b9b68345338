package fixtures

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Identity and keys shared by tests that mint tokens.
const (
	TestClientID     = "quest_ai"
	TestClientSecret = "test-quest-ai-secret"
	TestAudience     = "mongo_db_tools"
	TestEmail        = "user@example.com"
	TestUserID       = "user-123"
	TestProject      = "project-alpha"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
	rsaErr  error
)

// RSAKey returns a process-wide RSA key and the base64 PEM encoding of its public half,
// in the form expected by PUBLIC_KEY_B64.
func RSAKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	rsaOnce.Do(func() {
		rsaKey, rsaErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, rsaErr)

	return rsaKey, PublicKeyB64(t, &rsaKey.PublicKey)
}

// PublicKeyB64 encodes a public key as base64 PEM.
func PublicKeyB64(t *testing.T, key *rsa.PublicKey) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(key)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return base64.StdEncoding.EncodeToString(pemBytes)
}

// UserClaims returns the claims of a valid user token expiring in an hour.
// Entries in overrides replace the defaults; a nil override removes the claim.
func UserClaims(overrides jwt.MapClaims) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":       TestEmail,
		"id":        TestUserID,
		"type":      "user",
		"role":      "member",
		"client_id": TestClientID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

// SignHS256 signs claims with an HMAC secret.
func SignHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// SignRS256 signs claims with an RSA private key.
func SignRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

// LegacyToken mints a valid version 1 token for the test client.
func LegacyToken(t *testing.T) string {
	t.Helper()
	return SignHS256(t, TestClientSecret, UserClaims(nil))
}
