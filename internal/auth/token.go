package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned by Decode when a token is malformed, carries
	// a bad signature, or has expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidScope is returned when a valid token is presented to an
	// operation that requires a different scope.
	ErrInvalidScope = errors.New("invalid token scope")
)

// Scope distinguishes access tokens from refresh tokens.
type Scope string

const (
	// ScopeAccess marks a short-lived token accepted by protected endpoints.
	ScopeAccess Scope = "access_token"
	// ScopeRefresh marks a long-lived token accepted only by the refresh flow.
	ScopeRefresh Scope = "refresh_token"
)

// Claims is the decoded content of a bearer token.
type Claims struct {
	ID        string
	Subject   string
	Scope     Scope
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenConfig configures a Codec. It is fixed at startup.
type TokenConfig struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// Algorithm is the JWS algorithm identifier: HS256, HS384 or HS512.
	Algorithm string
	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration
	// RefreshTTL is the lifetime of refresh tokens.
	RefreshTTL time.Duration
}

// wireClaims is the JWT payload: sub, iat, exp, jti and scope.
type wireClaims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// Codec encodes claims into signed compact tokens and decodes them back.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	now    func() time.Time
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithClock replaces the time source used to issue and validate tokens.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec validates cfg and returns a Codec.
// An error here means the signing configuration is unusable and the process
// should not start.
func NewCodec(cfg TokenConfig, opts ...CodecOption) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	c := &Codec{cfg: cfg, method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured lifetime for tokens of the given scope.
func (c *Codec) TTL(scope Scope) time.Duration {
	if scope == ScopeRefresh {
		return c.cfg.RefreshTTL
	}
	return c.cfg.AccessTTL
}

// Issue builds and signs claims for subject with the given scope. The token
// is valid from now until now plus the scope's lifetime.
func (c *Codec) Issue(subject string, scope Scope) (string, Claims, error) {
	// JWT timestamps have second precision.
	now := c.now().UTC().Truncate(time.Second)
	claims := Claims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.TTL(scope)),
	}
	token, err := c.Encode(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Encode signs claims as a compact JWS.
func (c *Codec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, wireClaims{
		Scope: claims.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := token.SignedString(c.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// Every failure wraps ErrInvalidToken.
func (c *Codec) Decode(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	var wc wireClaims
	parsed, err := parser.ParseWithClaims(token, &wc, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if wc.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if wc.Scope == "" {
		return Claims{}, fmt.Errorf("%w: missing scope", ErrInvalidToken)
	}

	claims := Claims{
		ID:        wc.ID,
		Subject:   wc.Subject,
		Scope:     wc.Scope,
		ExpiresAt: wc.ExpiresAt.Time.UTC(),
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time.UTC()
	}
	return claims, nil
}
