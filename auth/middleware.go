package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerToken extracts the token from the Authorization header.
func BearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// Keys under which the authentication middleware stores the caller.
const (
	UserIDKey = "user_id"
	ClaimsKey = "token_claims"
)

// UserID returns the authenticated user's id.
func UserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(UserIDKey)
	return id, id != ""
}

// ClaimsFrom returns the verified access token claims of the request.
func ClaimsFrom(ctx *gin.Context) (*Claims, bool) {
	v, ok := ctx.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
