package user

import (
	"diet-management-backend/auth"
	"diet-management-backend/internal/errors"
	"diet-management-backend/redis"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const refreshCookie = "refresh_token"

// Handler handles HTTP requests for users
type Handler struct {
	service      Service
	tokens       *auth.TokenIssuer
	revocations  *redis.RevocationStore
	secureCookie bool
	log          zerolog.Logger
}

// NewHandler creates a new user handler
func NewHandler(service Service, tokens *auth.TokenIssuer, revocations *redis.RevocationStore, secureCookie bool, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		tokens:       tokens,
		revocations:  revocations,
		secureCookie: secureCookie,
		log:          log,
	}
}

// FormLogin represents login form data
type FormLogin struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FormRegister represents registration form data
type FormRegister struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var form FormRegister
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user := &User{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	}

	if err := h.service.Register(c.Request.Context(), user); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.ToSafeUser()})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	userID := user.ID.Hex()
	accessToken, err := h.tokens.GenerateAccessToken(userID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	refreshToken, err := h.tokens.GenerateRefreshToken(userID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	// Set refresh token as HttpOnly cookie
	c.SetCookie(
		refreshCookie,
		refreshToken,
		int(h.tokens.RefreshTTL().Seconds()),
		"/",
		"",
		h.secureCookie, // Secure
		true,           // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"user":         user.ToSafeUser(),
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		c.Error(errors.Unauthorized("Refresh token is not found!", err))
		return
	}

	claims, err := h.tokens.Verify(refreshToken, auth.TypeRefresh)
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token or expired!", err))
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.Error(errors.Unauthorized("User not found", err))
		return
	}

	// Check token version
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		c.Error(errors.Unauthorized("Invalid token!", nil))
		return
	}

	// Issue new access token
	newAccessToken, err := h.tokens.GenerateAccessToken(claims.UserID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": newAccessToken,
	})
}

// Logout handles user logout
func (h *Handler) Logout(c *gin.Context) {
	userID, _ := auth.UserID(c)

	if err := h.service.IncreaseTokenVersion(c.Request.Context(), userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("token version bump failed")
	}

	if claims, ok := auth.ClaimsFrom(c); ok {
		err := h.revocations.Revoke(c.Request.Context(), claims.ID, h.tokens.ExpiresIn(claims))
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", userID).Msg("access token revocation failed")
		}
	}

	// Clear refresh cookie
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, exists := auth.UserID(c)
	if !exists {
		c.Error(errors.Unauthorized("user not found", nil))
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToSafeUser())
}
