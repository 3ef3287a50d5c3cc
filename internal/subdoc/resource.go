package subdoc

import (
	"context"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/utils"
	stdErrors "errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Access authorizes a user on a patient and resolves the patient id.
type Access interface {
	EnsureAccess(ctx context.Context, userID, patientID string) (primitive.ObjectID, error)
}

// Document is a parent document with its items decoded into T.
type Document[T any] struct {
	ID      primitive.ObjectID
	Patient primitive.ObjectID
	Items   []T
}

// Resource exposes one kind of patient sub-items to handlers: every call
// runs the patient access check before touching the collection and
// reports failures as API errors.
type Resource[T any] struct {
	coll   *Collection
	access Access
	noun   string
}

func NewResource[T any](coll *Collection, access Access, noun string) *Resource[T] {
	return &Resource[T]{coll: coll, access: access, noun: noun}
}

func (r *Resource[T]) Create(ctx context.Context, userID, patientID string, item any) (*Document[T], error) {
	owner, err := r.access.EnsureAccess(ctx, userID, patientID)
	if err != nil {
		return nil, err
	}

	encoded, err := Encode(item)
	if err != nil {
		return nil, errors.Internal(err)
	}

	parent, err := r.coll.Append(ctx, owner, encoded)
	if err != nil {
		return nil, r.apiError(err)
	}
	return r.decode(parent)
}

func (r *Resource[T]) List(ctx context.Context, userID, patientID string) (*Document[T], error) {
	owner, err := r.access.EnsureAccess(ctx, userID, patientID)
	if err != nil {
		return nil, err
	}

	parent, err := r.coll.Get(ctx, owner)
	if err != nil {
		return nil, r.apiError(err)
	}
	return r.decode(parent)
}

// Patch applies the non-nil fields of partial, a struct whose bson tags
// use omitempty, to one item.
func (r *Resource[T]) Patch(ctx context.Context, userID, patientID, itemID string, partial any) (*Document[T], error) {
	owner, id, err := r.resolve(ctx, userID, patientID, itemID)
	if err != nil {
		return nil, err
	}

	fields, err := Encode(partial)
	if err != nil {
		return nil, errors.Internal(err)
	}

	parent, err := r.coll.Patch(ctx, owner, id, fields)
	if err != nil {
		return nil, r.apiError(err)
	}
	return r.decode(parent)
}

func (r *Resource[T]) Delete(ctx context.Context, userID, patientID, itemID string) (*Document[T], error) {
	owner, id, err := r.resolve(ctx, userID, patientID, itemID)
	if err != nil {
		return nil, err
	}

	parent, err := r.coll.Remove(ctx, owner, id)
	if err != nil {
		return nil, r.apiError(err)
	}
	return r.decode(parent)
}

func (r *Resource[T]) resolve(ctx context.Context, userID, patientID, itemID string) (primitive.ObjectID, primitive.ObjectID, error) {
	id, err := utils.ParseObjectID(itemID, "itemId")
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	owner, err := r.access.EnsureAccess(ctx, userID, patientID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return owner, id, nil
}

func (r *Resource[T]) decode(parent *Parent) (*Document[T], error) {
	items, err := Decode[T](parent.Items)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Document[T]{ID: parent.ID, Patient: parent.Owner, Items: items}, nil
}

func (r *Resource[T]) apiError(err error) error {
	switch {
	case stdErrors.Is(err, ErrParentNotFound):
		return errors.NotFound("No "+r.noun+" recorded for this patient", err)
	case stdErrors.Is(err, ErrItemNotFound):
		return errors.NotFound(r.noun+" not found", err)
	case stdErrors.Is(err, ErrImmutableField), stdErrors.Is(err, ErrInvalidField):
		return errors.BadRequest(err.Error(), err)
	case stdErrors.Is(err, ErrConcurrentModification):
		return errors.Conflict("The "+r.noun+" list changed concurrently, retry the request", err)
	}
	return errors.Internal(err)
}
