package middleware

import (
	"bytes"
	"context"
	"diet-management-backend/auth"
	apiError "diet-management-backend/internal/errors"
	"diet-management-backend/internal/user"
	"diet-management-backend/redis"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redisLib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery(zerolog.Nop()), ErrorHandler(zerolog.Nop()))
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestErrorHandler_RendersAPIError(t *testing.T) {
	router := newRouter()
	router.GET("/", func(c *gin.Context) {
		c.Error(apiError.NotFound("Patient not found", nil))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":404,"message":"Patient not found"}`, w.Body.String())
}

func TestErrorHandler_HidesRawErrors(t *testing.T) {
	router := newRouter()
	router.GET("/", func(c *gin.Context) {
		c.Error(errors.New("connection reset by peer"))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestErrorHandler_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(zerolog.New(&buf)))
	router.GET("/", func(c *gin.Context) {
		c.Error(apiError.Internal(errors.New("disk full")))
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "disk full", line["error"])
}

func TestRequestID(t *testing.T) {
	router := newRouter()
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(router, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	router := newRouter()
	router.GET("/", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Logger(zerolog.New(&buf)))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/ping", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.Equal(t, "warn", line["level"])
	assert.NotEmpty(t, line["request_id"])
}

type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type authFixture struct {
	router      *gin.Engine
	users       *MockUserProvider
	tokens      *auth.TokenIssuer
	revocations *redis.RevocationStore
}

func setupAuth(t *testing.T) *authFixture {
	mr := miniredis.RunT(t)
	client := redisLib.NewClient(&redisLib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &authFixture{
		users:       new(MockUserProvider),
		tokens:      auth.NewTokenIssuer("secret", time.Minute, time.Hour),
		revocations: redis.NewRevocationStore(client),
	}
	m := &Auth{UserService: f.users, Tokens: f.tokens, Revocations: f.revocations}

	f.router = newRouter()
	f.router.GET("/me", m.AuthMiddleWare(), func(c *gin.Context) {
		id, _ := auth.UserID(c)
		c.String(http.StatusOK, id)
	})
	return f
}

func (f *authFixture) get(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(f.router, req)
}

func TestAuth_AcceptsValidToken(t *testing.T) {
	f := setupAuth(t)
	id := primitive.NewObjectID()
	f.users.On("GetUserByID", id.Hex()).Return(&user.User{ID: id, IsActive: true, TokenVersion: 1}, nil)

	token, err := f.tokens.GenerateAccessToken(id.Hex(), 1)
	require.NoError(t, err)

	w := f.get(token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.Hex(), w.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name  string
		user  *user.User
		token func(f *authFixture) string
	}{
		{
			name:  "missing header",
			token: func(f *authFixture) string { return "" },
		},
		{
			name:  "garbage token",
			token: func(f *authFixture) string { return "garbage" },
		},
		{
			name: "refresh token",
			token: func(f *authFixture) string {
				tok, _ := f.tokens.GenerateRefreshToken(id.Hex(), 0)
				return tok
			},
		},
		{
			name: "stale token version",
			user: &user.User{ID: id, IsActive: true, TokenVersion: 2},
			token: func(f *authFixture) string {
				tok, _ := f.tokens.GenerateAccessToken(id.Hex(), 1)
				return tok
			},
		},
		{
			name: "inactive user",
			user: &user.User{ID: id, IsActive: false},
			token: func(f *authFixture) string {
				tok, _ := f.tokens.GenerateAccessToken(id.Hex(), 0)
				return tok
			},
		},
		{
			name: "revoked token",
			user: &user.User{ID: id, IsActive: true},
			token: func(f *authFixture) string {
				tok, _ := f.tokens.GenerateAccessToken(id.Hex(), 0)
				claims, _ := f.tokens.Verify(tok, auth.TypeAccess)
				f.revocations.Revoke(context.Background(), claims.ID, time.Minute)
				return tok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuth(t)
			if tt.user != nil {
				f.users.On("GetUserByID", id.Hex()).Return(tt.user, nil).Maybe()
			}

			w := f.get(tt.token(f))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuth_UnknownUser(t *testing.T) {
	f := setupAuth(t)
	id := primitive.NewObjectID()
	f.users.On("GetUserByID", id.Hex()).Return(nil, apiError.NotFound("User not found", user.ErrNotFound))

	token, err := f.tokens.GenerateAccessToken(id.Hex(), 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, f.get(token).Code)
}
