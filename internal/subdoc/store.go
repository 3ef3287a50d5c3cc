package subdoc

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrParentNotFound         = errors.New("parent document not found")
	ErrItemNotFound           = errors.New("item not found")
	ErrImmutableField         = errors.New("field cannot be changed")
	ErrInvalidField           = errors.New("invalid field name")
	ErrConcurrentModification = errors.New("parent document modified concurrently")
)

// Store persists the parent documents of one Layout.
//
// Write methods that target an item report whether a parent/item matched
// their predicate instead of failing, so the protocol can tell a missing
// item from a legacy one.
type Store interface {
	Layout() Layout

	// Find loads the parent document of owner or returns ErrParentNotFound.
	Find(ctx context.Context, owner primitive.ObjectID) (*Parent, error)

	// Append creates the parent when missing and pushes item in one atomic
	// step. Concurrent first appends for one owner create one parent.
	Append(ctx context.Context, owner primitive.ObjectID, item Item) (*Parent, error)

	// SetFields sets fields on the single item whose typed "_id" equals id.
	SetFields(ctx context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error)

	// ReplaceItems rewrites the whole sequence, provided the parent is still
	// at the version of snapshot. Any write since the snapshot was read makes
	// it report false.
	ReplaceItems(ctx context.Context, snapshot *Parent, items []Item) (bool, error)

	// Remove pulls the item whose typed "_id" equals id.
	Remove(ctx context.Context, owner, id primitive.ObjectID) (bool, error)

	DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error

	// Owners lists the owner of every stored parent document.
	Owners(ctx context.Context) ([]primitive.ObjectID, error)
}
