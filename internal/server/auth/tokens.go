// Package auth mints and verifies the JWT pairs handed out by the auth
// endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/middleware"
)

// ErrInvalidRefreshToken is returned when a refresh token fails validation.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Issuer signs HS256 token pairs.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints a token pair for the user. The access token carries the role;
// the refresh token carries only the subject.
func (i *Issuer) Issue(u user.User) (TokenPair, error) {
	now := time.Now()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}).SignedString(i.secret)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		Audience:  jwt.ClaimStrings{middleware.AudienceRefresh},
	}).SignedString(i.secret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseRefresh validates a refresh token and returns the subject user id.
func (i *Issuer) ParseRefresh(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithAudience(middleware.AudienceRefresh))
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidRefreshToken
	}
	return claims.Subject, nil
}
