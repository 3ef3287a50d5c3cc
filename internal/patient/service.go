package patient

import (
	"context"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/utils"
	stdErrors "errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dependent is a store whose records hang off a patient and go away with it.
type Dependent interface {
	DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error
}

type Service interface {
	Create(ctx context.Context, userID string, form *Form) (*Patient, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]Patient, subdoc.PageMeta, error)
	Get(ctx context.Context, userID, patientID string) (*Patient, error)
	Update(ctx context.Context, userID, patientID string, form *Form) (*Patient, error)
	Delete(ctx context.Context, userID, patientID string) error
	EnsureAccess(ctx context.Context, userID, patientID string) (primitive.ObjectID, error)
}

type DefaultService struct {
	repository Repository
	dependents []Dependent
}

func NewService(repository Repository, dependents ...Dependent) Service {
	return &DefaultService{repository: repository, dependents: dependents}
}

func (s *DefaultService) Create(ctx context.Context, userID string, form *Form) (*Patient, error) {
	owner, err := utils.ParseObjectID(userID, "user id")
	if err != nil {
		return nil, err
	}

	p := &Patient{UserID: owner}
	form.apply(p)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	err = s.repository.Create(ctx, p)
	if stdErrors.Is(err, ErrDuplicate) {
		return nil, errors.Conflict("Patient already registered", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return p, nil
}

func (s *DefaultService) List(ctx context.Context, userID string, page, pageSize int) ([]Patient, subdoc.PageMeta, error) {
	owner, err := utils.ParseObjectID(userID, "user id")
	if err != nil {
		return nil, subdoc.PageMeta{}, err
	}

	patients, total, err := s.repository.ListByUser(ctx, owner, page, pageSize)
	if err != nil {
		return nil, subdoc.PageMeta{}, errors.Internal(err)
	}
	return patients, subdoc.NewPageMeta(total, page, pageSize), nil
}

func (s *DefaultService) Get(ctx context.Context, userID, patientID string) (*Patient, error) {
	return s.load(ctx, userID, patientID)
}

func (s *DefaultService) Update(ctx context.Context, userID, patientID string, form *Form) (*Patient, error) {
	p, err := s.load(ctx, userID, patientID)
	if err != nil {
		return nil, err
	}

	form.apply(p)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	err = s.repository.Update(ctx, p)
	switch {
	case stdErrors.Is(err, ErrDuplicate):
		return nil, errors.Conflict("Patient already registered", err)
	case stdErrors.Is(err, ErrNotFound):
		return nil, errors.NotFound("Patient not found", err)
	case err != nil:
		return nil, errors.Internal(err)
	}
	return p, nil
}

// Delete removes the dependent records before the patient itself.
func (s *DefaultService) Delete(ctx context.Context, userID, patientID string) error {
	p, err := s.load(ctx, userID, patientID)
	if err != nil {
		return err
	}

	for _, d := range s.dependents {
		if err := d.DeleteByOwner(ctx, p.ID); err != nil {
			return errors.Internal(fmt.Errorf("cascade delete of patient %s: %w", p.ID.Hex(), err))
		}
	}
	if err := s.repository.Delete(ctx, p.ID); err != nil && !stdErrors.Is(err, ErrNotFound) {
		return errors.Internal(err)
	}
	return nil
}

// EnsureAccess validates the patient id, checks that the patient exists
// and that it belongs to the user.
func (s *DefaultService) EnsureAccess(ctx context.Context, userID, patientID string) (primitive.ObjectID, error) {
	p, err := s.load(ctx, userID, patientID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return p.ID, nil
}

func (s *DefaultService) load(ctx context.Context, userID, patientID string) (*Patient, error) {
	pid, err := utils.ParseObjectID(patientID, "patientId")
	if err != nil {
		return nil, err
	}
	owner, err := utils.ParseObjectID(userID, "user id")
	if err != nil {
		return nil, err
	}

	p, err := s.repository.FindByID(ctx, pid)
	if stdErrors.Is(err, ErrNotFound) {
		return nil, errors.NotFound("Patient not found", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	if p.UserID != owner {
		return nil, errors.Forbidden("Patient belongs to another user", nil)
	}
	return p, nil
}
