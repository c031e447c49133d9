package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the only error callers see from Verify. The wrapped text names the
// reason (expired, signature, malformed...) for logs.
var ErrInvalidToken = errors.New("invalid session")

// Session is what a verified token proves
type Session struct {
	PrincipalID uuid.UUID
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IssuedToken is a freshly signed token plus its bookkeeping fields
type IssuedToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenCodec signs and verifies HMAC JWTs carrying the principal id as subject
type TokenCodec struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a codec for a single static key. Only the HMAC family is accepted.
func NewTokenCodec(secret []byte, algorithm string, defaultTTL time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token codec: empty signing key")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", algorithm)
	}
	if defaultTTL <= 0 {
		return nil, errors.New("token codec: ttl must be positive")
	}
	return &TokenCodec{
		secret:     secret,
		method:     method,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// DefaultTTL is the lifetime used when Issue is called with ttl <= 0
func (c *TokenCodec) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Issue signs a token for principalID that expires ttl from now
func (c *TokenCodec) Issue(principalID uuid.UUID, ttl time.Duration) (IssuedToken, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.NewString()

	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   principalID.String(),
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry and returns the embedded session
func (c *TokenCodec) Verify(tokenString string) (*Session, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, reason(err))
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: not valid", ErrInvalidToken)
	}

	principalID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	session := &Session{PrincipalID: principalID, TokenID: claims.ID}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature mismatch"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing claim"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not valid yet"
	default:
		return "rejected"
	}
}
