package patient

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("patient not found")
	ErrDuplicate = errors.New("patient email already registered for this user")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Patient, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]Patient, int64, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MongoRepository stores patients in the "patients" collection
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("patients")}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_email_unique"),
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	var p Patient
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]Patient, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	patients := []Patient{}
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *MongoRepository) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := r.coll.UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{
		"name":       p.Name,
		"email":      p.Email,
		"phone":      p.Phone,
		"birth_date": p.BirthDate,
		"sex":        p.Sex,
		"notes":      p.Notes,
		"updated_at": p.UpdatedAt,
	}})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GormRepository stores patients in the relational "patients" table
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, p *Patient) error {
	p.ID = primitive.NewObjectID()
	row := toRow(p)

	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	var row Row
	err := r.db.WithContext(ctx).Where("id = ?", id.Hex()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := row.toPatient()
	return &p, nil
}

func (r *GormRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]Patient, int64, error) {
	query := r.db.WithContext(ctx).Model(&Row{}).Where("user_id = ?", userID.Hex())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Row
	err := query.
		Order("name, id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	patients := make([]Patient, 0, len(rows))
	for i := range rows {
		patients = append(patients, rows[i].toPatient())
	}
	return patients, total, nil
}

func (r *GormRepository) Update(ctx context.Context, p *Patient) error {
	res := r.db.WithContext(ctx).
		Model(&Row{}).
		Where("id = ?", p.ID.Hex()).
		Updates(map[string]any{
			"name":       p.Name,
			"email":      p.Email,
			"phone":      p.Phone,
			"birth_date": p.BirthDate,
			"sex":        p.Sex,
			"notes":      p.Notes,
		})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id.Hex()).Delete(&Row{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
