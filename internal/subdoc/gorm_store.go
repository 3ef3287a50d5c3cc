package subdoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOptimisticAttempts = 16

// ParentRow is the relational form of a parent document. Items are kept
// as canonical extended JSON so identifiers, dates and number widths
// survive exactly as they would in MongoDB.
type ParentRow struct {
	ID        string         `gorm:"primaryKey;size:24"`
	Kind      string         `gorm:"size:64;not null;uniqueIndex:idx_parent_kind_owner"`
	Owner     string         `gorm:"size:24;not null;uniqueIndex:idx_parent_kind_owner"`
	Version   int64          `gorm:"not null;default:0"`
	Items     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ParentRow) TableName() string {
	return "subdocument_parents"
}

type itemsEnvelope struct {
	Items []Item `bson:"items"`
}

// GormStore implements Store on a relational database. There is no native
// upsert-and-push, so every mutation is a read followed by a write
// conditioned on the row version, retried when another writer got there
// first.
type GormStore struct {
	db     *gorm.DB
	layout Layout
}

func NewGormStore(db *gorm.DB, layout Layout) *GormStore {
	return &GormStore{db: db, layout: layout}
}

func (s *GormStore) Layout() Layout {
	return s.layout
}

func (s *GormStore) Find(ctx context.Context, owner primitive.ObjectID) (*Parent, error) {
	row, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.toParent(row)
}

func (s *GormStore) Append(ctx context.Context, owner primitive.ObjectID, item Item) (*Parent, error) {
	empty, err := encodeItems([]Item{})
	if err != nil {
		return nil, err
	}

	// create-if-absent; the (kind, owner) unique index turns a racing
	// second insert into a no-op
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ParentRow{
			ID:    primitive.NewObjectID().Hex(),
			Kind:  s.layout.Kind,
			Owner: owner.Hex(),
			Items: empty,
		}).Error
	if err != nil {
		return nil, err
	}

	_, err = s.mutate(ctx, owner, func(items []Item) ([]Item, bool) {
		return append(items, item), true
	})
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, owner)
}

func (s *GormStore) SetFields(ctx context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error) {
	changed, err := s.mutate(ctx, owner, func(items []Item) ([]Item, bool) {
		idx := typedIndex(items, id)
		if idx < 0 {
			return nil, false
		}
		for field, value := range set {
			items[idx][field] = value
		}
		return items, true
	})
	if errors.Is(err, ErrParentNotFound) {
		return false, nil
	}
	return changed, err
}

func (s *GormStore) ReplaceItems(ctx context.Context, snapshot *Parent, items []Item) (bool, error) {
	data, err := encodeItems(items)
	if err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).
		Model(&ParentRow{}).
		Where("kind = ? AND owner = ? AND version = ?", s.layout.Kind, snapshot.Owner.Hex(), snapshot.Version).
		Updates(map[string]any{
			"items":      data,
			"version":    snapshot.Version + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) Remove(ctx context.Context, owner, id primitive.ObjectID) (bool, error) {
	changed, err := s.mutate(ctx, owner, func(items []Item) ([]Item, bool) {
		idx := typedIndex(items, id)
		if idx < 0 {
			return nil, false
		}
		return append(items[:idx], items[idx+1:]...), true
	})
	if errors.Is(err, ErrParentNotFound) {
		return false, nil
	}
	return changed, err
}

func (s *GormStore) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error {
	return s.db.WithContext(ctx).
		Where("kind = ? AND owner = ?", s.layout.Kind, owner.Hex()).
		Delete(&ParentRow{}).Error
}

func (s *GormStore) Owners(ctx context.Context) ([]primitive.ObjectID, error) {
	var hexes []string
	err := s.db.WithContext(ctx).
		Model(&ParentRow{}).
		Where("kind = ?", s.layout.Kind).
		Pluck("owner", &hexes).Error
	if err != nil {
		return nil, err
	}

	owners := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		if oid, ok := NormalizeID(h); ok {
			owners = append(owners, oid)
		}
	}
	return owners, nil
}

// mutate applies fn to the current sequence and writes the result only if
// the row version is unchanged. fn returning false means nothing to write.
func (s *GormStore) mutate(ctx context.Context, owner primitive.ObjectID, fn func([]Item) ([]Item, bool)) (bool, error) {
	for attempt := 0; attempt < maxOptimisticAttempts; attempt++ {
		row, err := s.load(ctx, owner)
		if err != nil {
			return false, err
		}
		items, err := decodeItems(row.Items)
		if err != nil {
			return false, err
		}

		next, ok := fn(items)
		if !ok {
			return false, nil
		}
		data, err := encodeItems(next)
		if err != nil {
			return false, err
		}

		res := s.db.WithContext(ctx).
			Model(&ParentRow{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Updates(map[string]any{
				"items":      data,
				"version":    row.Version + 1,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
	}
	return false, ErrConcurrentModification
}

func (s *GormStore) load(ctx context.Context, owner primitive.ObjectID) (*ParentRow, error) {
	var row ParentRow
	err := s.db.WithContext(ctx).
		Where("kind = ? AND owner = ?", s.layout.Kind, owner.Hex()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *GormStore) toParent(row *ParentRow) (*Parent, error) {
	id, _ := NormalizeID(row.ID)
	owner, ok := NormalizeID(row.Owner)
	if !ok {
		return nil, fmt.Errorf("%s row %s has no valid owner", s.layout.Kind, row.ID)
	}
	items, err := decodeItems(row.Items)
	if err != nil {
		return nil, err
	}
	return &Parent{ID: id, Owner: owner, Items: items, Version: row.Version}, nil
}

func encodeItems(items []Item) (datatypes.JSON, error) {
	data, err := bson.MarshalExtJSON(itemsEnvelope{Items: items}, true, false)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return datatypes.JSON(data), nil
}

func decodeItems(data datatypes.JSON) ([]Item, error) {
	var env itemsEnvelope
	if len(data) == 0 {
		return []Item{}, nil
	}
	if err := bson.UnmarshalExtJSON(data, true, &env); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if env.Items == nil {
		env.Items = []Item{}
	}
	return env.Items, nil
}
