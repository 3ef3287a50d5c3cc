package middleware

import (
	"context"
	"diet-management-backend/auth"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/user"
	"diet-management-backend/redis"

	"github.com/gin-gonic/gin"
)

type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

type Auth struct {
	UserService UserProvider
	Tokens      *auth.TokenIssuer
	Revocations *redis.RevocationStore
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := auth.BearerToken(ctx)
		if !ok {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		claims, err := m.Tokens.Verify(token, auth.TypeAccess)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		revoked, err := m.Revocations.IsRevoked(ctx.Request.Context(), claims.ID)
		if err != nil {
			ctx.Error(errors.Internal(err))
			ctx.Abort()
			return
		}
		if revoked {
			ctx.Error(errors.Unauthorized("Token has been revoked!", nil))
			ctx.Abort()
			return
		}

		u, err := m.UserService.GetUserByID(ctx.Request.Context(), claims.UserID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid User ID!", err))
			ctx.Abort()
			return
		}
		if !u.IsActive {
			ctx.Error(errors.Unauthorized("User is not active", nil))
			ctx.Abort()
			return
		}

		// Check token version
		if u.TokenVersion != claims.TokenVersion {
			ctx.Error(errors.Unauthorized("Invalid token version!", nil))
			ctx.Abort()
			return
		}

		ctx.Set(auth.UserIDKey, claims.UserID)
		ctx.Set(auth.ClaimsKey, claims)
		ctx.Next()
	}
}
