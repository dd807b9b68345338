package auth

import (
	"errors"
	"fmt"
)

// TokenData is the identity carried by a verified access token.
// It lives for one request and is never persisted.
type TokenData struct {
	Email    string `json:"email"`
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Role     string `json:"role,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	// AccessToken is the raw bearer token, forwarded to downstream services.
	AccessToken string `json:"-"`
}

var (
	// ErrInvalidToken covers bad signatures, malformed tokens, wrong audience and unknown signers.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a correctly signed token whose exp is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnknownClient is returned when a version 1 token names a client without a key.
	ErrUnknownClient = fmt.Errorf("%w: unknown client", ErrInvalidToken)
	// ErrMissingClaims is returned when sub or id is absent from a verified token.
	ErrMissingClaims = errors.New("missing required claims")
)
