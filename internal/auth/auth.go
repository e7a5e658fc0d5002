// Package auth implements the token and credential core: issuance and
// verification of HS256-signed access/refresh tokens, and bcrypt hashing and
// verification of account passwords.
//
// Tokens are stateless: validity is purely a function of signature and
// expiry. There is no revocation list and no refresh-token rotation, so a
// valid refresh token mints access tokens until it expires. Logout is a
// client-side concern.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	// AccessTokenTTL is the fixed lifetime of an access token.
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is the fixed lifetime of a refresh token.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned when a token is absent, malformed, expired,
// or signed with the wrong secret.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Auth issues and verifies tokens with a shared signing secret.
type Auth struct {
	signingSecretKey []byte
}

// New creates a new Auth handler with the given JWT signing secret.
// The secret is mandatory: startup-time configuration guarantees it is
// non-empty before this constructor is reached.
func New(signingSecretKey []byte) (*Auth, error) {
	if len(signingSecretKey) == 0 {
		return nil, errors.New("JWT signing secret must not be empty")
	}

	return &Auth{signingSecretKey: signingSecretKey}, nil
}

// BuildAccessToken issues a signed access token bound to the given user.
func (a *Auth) BuildAccessToken(userID string) (string, error) {
	return a.buildJWTString(userID, AccessTokenTTL)
}

// BuildRefreshToken issues a signed refresh token bound to the given user.
// The only difference from an access token is the expiry offset.
func (a *Auth) BuildRefreshToken(userID string) (string, error) {
	return a.buildJWTString(userID, RefreshTokenTTL)
}

// ParseUserID verifies the token signature and expiry and extracts the
// embedded user identifier. Any failure is reported as ErrInvalidToken.
func (a *Auth) ParseUserID(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

func (a *Auth) buildJWTString(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// HashPassword derives a salted one-way bcrypt hash for storage.
// The plaintext is never stored.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword reports whether the submitted plaintext matches the stored
// bcrypt hash. bcrypt performs the comparison in constant time.
func VerifyPassword(passwordHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}
