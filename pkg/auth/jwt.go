// Package auth signs and verifies the HS256 tokens used for magic links and
// sessions, and carries verified claims through a request context.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/developlogy/sitebuilder/config"
)

// Token purposes. A token is only accepted for the purpose it was issued for.
const (
	PurposeMagicLink = "magic_link"
	PurposeSession   = "session"
)

const (
	MagicLinkTTL = 15 * time.Minute
	SessionTTL   = 24 * time.Hour
)

var ErrWrongPurpose = errors.New("auth: token issued for a different purpose")

// Claims holds the typed JWT payload.
type Claims struct {
	UserID  string `json:"uid,omitempty"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func secret() []byte {
	return []byte(config.JWTSecret())
}

// Issue signs claims with the configured secret. ID, IssuedAt and ExpiresAt
// are filled in when empty.
func Issue(claims Claims, ttl time.Duration, now time.Time) (string, *Claims, error) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// GenerateToken creates a signed session token for the given user.
func GenerateToken(userID, email string, now time.Time) (string, *Claims, error) {
	return Issue(Claims{UserID: userID, Email: email, Purpose: PurposeSession}, SessionTTL, now)
}

// ValidateToken parses t, checks signature, algorithm, expiry and purpose.
func ValidateToken(t, purpose string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}

// HashCode returns a bcrypt hash of a one-time login code.
func HashCode(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckCode compares a bcrypt hash against the plain-text candidate.
func CheckCode(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ─── Request context ─────────────────────────────────────────────────────────

type claimsKey struct{}

// WithClaims stores verified session claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the session claims stored by the Auth middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated user id, or "" for guests.
func UserID(ctx context.Context) string {
	if c, ok := FromContext(ctx); ok {
		return c.UserID
	}
	return ""
}
