package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload: the standard registered claims plus
// the user identifier under the "userId" key.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenCodec issues and verifies HS256 session tokens with a fixed secret
// and lifetime. It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for both issuance and expiry
// checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec returns common.ErrMissingSecret when secret is empty. A
// non-positive ttl selects common.SessionTTL.
func NewTokenCodec(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, common.ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = common.SessionTTL
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for userID that expires TTL() from now.
func (c *TokenCodec) Issue(userID string) (string, error) {
	return issue(userID, c.secret, c.ttl, c.now())
}

// Parse verifies the token and returns its user id. Failures are reported as
// common.ErrTokenExpired or common.ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (string, error) {
	return parse(tokenString, c.secret, c.now)
}

// Verify is Parse with the failure reason dropped.
func (c *TokenCodec) Verify(tokenString string) (string, bool) {
	userID, err := c.Parse(tokenString)
	if err != nil {
		return "", false
	}
	return userID, true
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	if len(secretKey) == 0 {
		return "", common.ErrMissingSecret
	}
	return issue(userID, secretKey, validityDuration, time.Now())
}

func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	return parse(tokenString, secretKey, time.Now)
}

func issue(userID string, secretKey []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func parse(tokenString string, secretKey []byte, now func() time.Time) (string, error) {
	if tokenString == "" || len(secretKey) == 0 {
		return "", common.ErrInvalidToken
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
