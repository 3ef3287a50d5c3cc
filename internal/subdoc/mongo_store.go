package subdoc

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// versionField counts the writes to a parent document. Every update bumps
// it with $inc; older documents lack it until their next write.
const versionField = "version"

// MongoStore keeps one parent document per owner in a MongoDB collection,
// with items embedded in an array field.
type MongoStore struct {
	coll   *mongo.Collection
	layout Layout
}

func NewMongoStore(db *mongo.Database, layout Layout) *MongoStore {
	return &MongoStore{
		coll:   db.Collection(layout.Collection),
		layout: layout,
	}
}

func (s *MongoStore) Layout() Layout {
	return s.layout
}

// EnsureIndexes creates the unique owner index that keeps upserts from
// ever producing two parents for one owner.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: s.layout.OwnerField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(s.layout.OwnerField + "_unique"),
	})
	return err
}

func (s *MongoStore) Find(ctx context.Context, owner primitive.ObjectID) (*Parent, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{s.layout.OwnerField: owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.toParent(doc)
}

func (s *MongoStore) Append(ctx context.Context, owner primitive.ObjectID, item Item) (*Parent, error) {
	filter := bson.M{s.layout.OwnerField: owner}
	update := bson.M{
		"$setOnInsert": bson.M{s.layout.OwnerField: owner},
		"$push":        bson.M{s.layout.ItemsField: item},
		"$inc":         bson.M{versionField: int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc bson.M
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// two first appends raced on the upsert; the loser retries as a plain push
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, err
	}
	return s.toParent(doc)
}

func (s *MongoStore) SetFields(ctx context.Context, owner, id primitive.ObjectID, set map[string]any) (bool, error) {
	fields := bson.M{}
	for name, value := range set {
		fields[s.layout.ItemsField+".$."+name] = value
	}

	update := bson.M{
		"$set": fields,
		"$inc": bson.M{versionField: int64(1)},
	}

	res, err := s.coll.UpdateOne(ctx, s.itemFilter(owner, id), update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) ReplaceItems(ctx context.Context, snapshot *Parent, items []Item) (bool, error) {
	filter := bson.M{s.layout.OwnerField: snapshot.Owner}
	if snapshot.Version == 0 {
		filter["$or"] = bson.A{
			bson.M{versionField: bson.M{"$exists": false}},
			bson.M{versionField: int64(0)},
		}
	} else {
		filter[versionField] = snapshot.Version
	}
	update := bson.M{
		"$set": bson.M{s.layout.ItemsField: items},
		"$inc": bson.M{versionField: int64(1)},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) Remove(ctx context.Context, owner, id primitive.ObjectID) (bool, error) {
	update := bson.M{
		"$pull": bson.M{s.layout.ItemsField: bson.M{"_id": id}},
		"$inc":  bson.M{versionField: int64(1)},
	}

	res, err := s.coll.UpdateOne(ctx, s.itemFilter(owner, id), update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{s.layout.OwnerField: owner})
	return err
}

func (s *MongoStore) Owners(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := s.coll.Distinct(ctx, s.layout.OwnerField, bson.M{})
	if err != nil {
		return nil, err
	}

	owners := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if oid, ok := NormalizeID(v); ok {
			owners = append(owners, oid)
		}
	}
	return owners, nil
}

func (s *MongoStore) itemFilter(owner, id primitive.ObjectID) bson.M {
	return bson.M{
		s.layout.OwnerField:          owner,
		s.layout.ItemsField + "._id": id,
	}
}

func (s *MongoStore) toParent(doc bson.M) (*Parent, error) {
	id, _ := doc["_id"].(primitive.ObjectID)
	owner, ok := NormalizeID(doc[s.layout.OwnerField])
	if !ok {
		return nil, fmt.Errorf("%s document %s has no valid owner", s.layout.Kind, id.Hex())
	}

	items, err := toItems(doc[s.layout.ItemsField])
	if err != nil {
		return nil, fmt.Errorf("%s document %s: %w", s.layout.Kind, id.Hex(), err)
	}

	return &Parent{ID: id, Owner: owner, Items: items, Version: toVersion(doc[versionField])}, nil
}

func toVersion(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
