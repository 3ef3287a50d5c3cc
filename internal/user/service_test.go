package user

import (
	"context"
	apiErrors "diet-management-backend/internal/errors"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	return m.Called(user).Error(0)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) IncrementTokenVersion(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(id).Error(0)
}

func (m *MockRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(id).Error(0)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *apiErrors.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.Status
}

func TestService_RegisterHashesPassword(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything).Return(nil)
	svc := NewService(repo)

	u := &User{Name: "Ann", Email: " Ann@Example.com ", Password: "secret123"}
	require.NoError(t, svc.Register(context.Background(), u))

	assert.Equal(t, "ann@example.com", u.Email)
	assert.Empty(t, u.Password)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))
}

func TestService_RegisterDuplicateIsConflict(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything).Return(ErrDuplicate)

	err := NewService(repo).Register(context.Background(), &User{Email: "a@b.c", Password: "secret123"})

	assert.Equal(t, http.StatusConflict, statusOf(t, err))
}

func TestService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	active := &User{ID: primitive.NewObjectID(), Email: "a@b.c", PasswordHash: string(hash), IsActive: true}
	inactive := &User{ID: primitive.NewObjectID(), Email: "off@b.c", PasswordHash: string(hash)}

	repo := new(MockRepository)
	repo.On("FindByEmail", "a@b.c").Return(active, nil)
	repo.On("FindByEmail", "off@b.c").Return(inactive, nil)
	repo.On("FindByEmail", "missing@b.c").Return(nil, ErrNotFound)
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.Login(ctx, "A@B.C", "secret123")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = svc.Login(ctx, "a@b.c", "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = svc.Login(ctx, "off@b.c", "secret123")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = svc.Login(ctx, "missing@b.c", "secret123")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestService_GetUserByID(t *testing.T) {
	id := primitive.NewObjectID()
	repo := new(MockRepository)
	repo.On("FindByID", id).Return(nil, ErrNotFound)
	svc := NewService(repo)

	_, err := svc.GetUserByID(context.Background(), "bad")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.GetUserByID(context.Background(), id.Hex())
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestService_IncreaseTokenVersion(t *testing.T) {
	id := primitive.NewObjectID()
	repo := new(MockRepository)
	repo.On("IncrementTokenVersion", id).Return(nil)

	require.NoError(t, NewService(repo).IncreaseTokenVersion(context.Background(), id.Hex()))
	repo.AssertExpectations(t)
}
