package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrWrongType   = errors.New("jwtx: token type mismatch")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
)

// Verifier is the read-only side of the codec, for consumers that only
// check tokens (HTTP middleware, the verify endpoint).
type Verifier interface {
	Verify(token string, expected TokenType) (Claims, error)
}

// Codec signs and verifies the service's tokens with a symmetric key.
// The signing method is fixed at construction; tokens presenting any
// other algorithm are rejected outright.
type Codec struct {
	secret []byte
	issuer string
	method jwt.SigningMethod
}

// NewCodec builds a Codec for the given server-held secret. algorithm
// selects the HMAC variant ("HS256", "HS384", "HS512"); empty means
// HS256.
func NewCodec(secret []byte, issuer, algorithm string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwtx: signing secret must be at least 32 bytes")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", algorithm)
	}

	return &Codec{secret: secret, issuer: issuer, method: method}, nil
}

// Mint signs claims for the given token type.
func (c *Codec) Mint(typ TokenType, subject, sid string, ttl time.Duration) (string, error) {
	claims := NewClaims(typ, subject, sid, c.issuer, ttl, time.Now().UTC())
	return c.Sign(claims)
}

// MintScoped signs claims carrying a space-delimited permission scope.
func (c *Codec) MintScoped(typ TokenType, subject, sid, scope string, ttl time.Duration) (string, error) {
	claims := NewClaims(typ, subject, sid, c.issuer, ttl, time.Now().UTC())
	claims.Scope = scope
	return c.Sign(claims)
}

// Issuer reports the iss value the codec stamps and enforces.
func (c *Codec) Issuer() string { return c.issuer }

// Sign serializes and signs pre-built claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Verify validates the signature, expiry, issuer, and token type. A
// structurally valid token of the wrong type returns ErrWrongType; this
// is what keeps access, refresh, and MFA-session tokens from ever being
// interchangeable.
func (c *Codec) Verify(token string, expected TokenType) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{c.method.Alg()}))

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.TokenType != expected {
		return Claims{}, ErrWrongType
	}

	return *claims, nil
}
