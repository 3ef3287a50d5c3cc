package db

import (
	"context"
	"diet-management-backend/internal/patient"
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/user"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Indexer is a Mongo backed store that declares its indexes.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// MongoIndexers lists every Mongo store of the API.
func MongoIndexers(database *mongo.Database) []Indexer {
	indexers := []Indexer{
		user.NewMongoRepository(database),
		patient.NewMongoRepository(database),
	}
	for _, layout := range subdoc.Layouts() {
		indexers = append(indexers, subdoc.NewMongoStore(database, layout))
	}
	return indexers
}

// EnsureIndexes creates the unique indexes the stores rely on. Existing
// indexes are left alone.
func EnsureIndexes(ctx context.Context, log zerolog.Logger, indexers ...Indexer) error {
	for _, ix := range indexers {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes for %T: %w", ix, err)
		}
	}
	log.Info().Int("stores", len(indexers)).Msg("Mongo indexes ensured")
	return nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	err := db.AutoMigrate(
		&user.Row{},
		&patient.Row{},
		&subdoc.ParentRow{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	log.Info().Msg("Database schema migrated successfully")
	return nil
}
