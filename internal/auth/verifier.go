package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	legacyVersion = 1

	claimVersion  = "version"
	claimClientID = "client_id"
	claimSubject  = "sub"
	claimID       = "id"
	claimType     = "type"
	claimRole     = "role"
)

// TokenVerifier verifies bearer tokens presented to the API.
type TokenVerifier interface {
	Verify(token, audience string) (*TokenData, error)
	VerifyDefault(token string) (*TokenData, error)
}

// Verifier checks access tokens issued under two schemes:
//   - version 1 (or no version claim): HS256, keyed by the token's client_id
//   - any other version: RS256 against a single platform public key, audience checked
type Verifier struct {
	clientKeys      map[string][]byte
	publicKey       *rsa.PublicKey
	defaultAudience string
}

var _ TokenVerifier = (*Verifier)(nil)

// NewVerifier builds a Verifier. clientKeys maps client_id to HMAC secret and is copied;
// publicKeyB64 is the base64 encoding of a PEM RSA public key.
func NewVerifier(clientKeys map[string]string, publicKeyB64, defaultAudience string) (*Verifier, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(publicKeyB64))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return NewVerifierWithKey(clientKeys, publicKey, defaultAudience), nil
}

// NewVerifierWithKey builds a Verifier from an already parsed public key.
func NewVerifierWithKey(clientKeys map[string]string, publicKey *rsa.PublicKey, defaultAudience string) *Verifier {
	keys := make(map[string][]byte, len(clientKeys))
	for id, secret := range clientKeys {
		keys[id] = []byte(secret)
	}
	return &Verifier{
		clientKeys:      keys,
		publicKey:       publicKey,
		defaultAudience: defaultAudience,
	}
}

// VerifyDefault verifies a token against the service's own audience.
func (v *Verifier) VerifyDefault(token string) (*TokenData, error) {
	return v.Verify(token, v.defaultAudience)
}

// Verify validates the token and returns the identity it carries.
// audience only applies to version 2+ tokens; an empty audience skips the check.
func (v *Verifier) Verify(token, audience string) (*TokenData, error) {
	unverified := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	clientID, _ := unverified[claimClientID].(string)

	var (
		claims jwt.MapClaims
		err    error
	)
	if isLegacyVersion(unverified) {
		claims, err = v.verifySymmetric(token, clientID)
	} else {
		claims, err = v.verifyAsymmetric(token, audience)
	}
	if err != nil {
		return nil, err
	}

	// Empty or non-scalar sub/id count as missing.
	email := claimString(claims, claimSubject)
	id := claimString(claims, claimID)
	if email == "" || id == "" {
		return nil, ErrMissingClaims
	}

	return &TokenData{
		Email:       email,
		ID:          id,
		Type:        claimString(claims, claimType),
		Role:        claimString(claims, claimRole),
		ClientID:    clientID,
		AccessToken: token,
	}, nil
}

func (v *Verifier) verifySymmetric(token, clientID string) (jwt.MapClaims, error) {
	secret, ok := v.clientKeys[clientID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownClient, clientID)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

func (v *Verifier) verifyAsymmetric(token, audience string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}

// isLegacyVersion reports whether the token uses the version 1 scheme.
// A missing version claim means version 1; only the number 1 matches, not the string "1".
func isLegacyVersion(claims jwt.MapClaims) bool {
	raw, ok := claims[claimVersion]
	if !ok || raw == nil {
		return true
	}
	n, ok := raw.(float64)
	return ok && n == legacyVersion
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
