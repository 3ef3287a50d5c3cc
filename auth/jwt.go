package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims carried by both access and refresh tokens
type Claims struct {
	UserID       string `json:"user_id"`
	TokenVersion int    `json:"token_version"`
	Type         string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *TokenIssuer) GenerateAccessToken(userID string, tokenVersion int) (string, error) {
	return i.generate(userID, tokenVersion, TypeAccess, i.accessTTL)
}

func (i *TokenIssuer) GenerateRefreshToken(userID string, tokenVersion int) (string, error) {
	return i.generate(userID, tokenVersion, TypeRefresh, i.refreshTTL)
}

func (i *TokenIssuer) generate(userID string, tokenVersion int, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		Type:         typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses the token, checks its signature and expiry, and makes sure
// it is of the expected type.
func (i *TokenIssuer) Verify(tokenString, expectedType string) (*Claims, error) {
	claims := &Claims{}
	jwtToken, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}

	if !jwtToken.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, fmt.Errorf("%w: got %q", ErrWrongTokenType, claims.Type)
	}

	return claims, nil
}

// ExpiresIn is the time left before the claims expire, never negative.
func (i *TokenIssuer) ExpiresIn(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	left := claims.ExpiresAt.Sub(i.now())
	if left < 0 {
		return 0
	}
	return left
}
