package user

import (
	"context"
	"diet-management-backend/internal/errors"
	stdErrors "errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, user *User) error
	Login(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	DeactivateUser(ctx context.Context, id string) error
	IncreaseTokenVersion(ctx context.Context, id string) error
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
}

// NewService creates a new user service
func NewService(repository UserRepository) Service {
	return &DefaultService{repository: repository}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register registers a new user
func (s *DefaultService) Register(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)

	// Hash the password before saving
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.UnprocessableEntity("Unable to register user", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.Password = ""
	user.IsActive = true
	user.TokenVersion = 0

	// the unique email index decides races between two registrations
	err = s.repository.Create(ctx, user)
	if stdErrors.Is(err, ErrDuplicate) {
		return errors.Conflict("User already registered", err)
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Login authenticates a user
func (s *DefaultService) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repository.FindByEmail(ctx, normalizeEmail(email))
	if stdErrors.Is(err, ErrNotFound) {
		return nil, errors.Unauthorized("Invalid email or password", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	// Check if user is active
	if !user.IsActive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	// Check password
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, errors.Unauthorized("Invalid email or password", err)
	}

	return user, nil
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.BadRequest("Invalid user id", err)
	}

	user, err := s.repository.FindByID(ctx, oid)
	if stdErrors.Is(err, ErrNotFound) {
		return nil, errors.NotFound("User not found", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return user, nil
}

// DeactivateUser deactivates a user
func (s *DefaultService) DeactivateUser(ctx context.Context, id string) error {
	return s.mutate(ctx, id, s.repository.Deactivate)
}

// IncreaseTokenVersion invalidates every token issued so far for the user
func (s *DefaultService) IncreaseTokenVersion(ctx context.Context, id string) error {
	return s.mutate(ctx, id, s.repository.IncrementTokenVersion)
}

func (s *DefaultService) mutate(ctx context.Context, id string, fn func(context.Context, primitive.ObjectID) error) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.BadRequest("Invalid user id", err)
	}

	err = fn(ctx, oid)
	if stdErrors.Is(err, ErrNotFound) {
		return errors.NotFound("User not found", err)
	}
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}
