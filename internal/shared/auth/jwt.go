package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the credential claims the relay reads. Roles accepts both a
// "roles" array and a single "role" string.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role, ignoring case.
func (c *Claims) HasRole(role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	if strings.EqualFold(c.Role, role) {
		return true
	}
	for _, r := range c.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// CredentialInspector extracts the claims of a bearer credential.
type CredentialInspector interface {
	Inspect(token string) (*Claims, error)
}

// NewInspector returns a verifying validator when a secret or public key is
// configured, and a decode-only inspector otherwise.
func NewInspector(secret, publicKeyPEM string) (CredentialInspector, error) {
	if strings.TrimSpace(secret) == "" && strings.TrimSpace(publicKeyPEM) == "" {
		return NewClaimsDecoder(), nil
	}
	return NewJWTValidatorWithPublicKey(secret, publicKeyPEM)
}

// ClaimsDecoder reads the claims without checking the signature; verification
// is left to the gateway in front of the relay.
type ClaimsDecoder struct {
	parser *jwt.Parser
}

func NewClaimsDecoder() *ClaimsDecoder {
	return &ClaimsDecoder{parser: jwt.NewParser()}
}

func (d *ClaimsDecoder) Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// JWTValidator verifies HS256 tokens with a shared secret, or RS256 tokens
// when a public key is configured.
type JWTValidator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	now       func() time.Time
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

// NewJWTValidatorWithPublicKey verifies RS256 with publicKeyPEM when set and
// HS256 with secret otherwise. A key that does not parse is an error.
func NewJWTValidatorWithPublicKey(secret, publicKeyPEM string) (*JWTValidator, error) {
	v := NewJWTValidator(secret)
	if strings.TrimSpace(publicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	return v, nil
}

func (v *JWTValidator) Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt key not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v, expected RS256", t.Header["alg"])
			}
			return v.publicKey, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Subject returns the subject claim of token.
func Subject(inspector CredentialInspector, token string) (string, error) {
	claims, err := inspector.Inspect(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
