package main

import (
	"context"
	"diet-management-backend/internal/anamnesis"
	"diet-management-backend/internal/config"
	"diet-management-backend/internal/db"
	"diet-management-backend/internal/energy"
	"diet-management-backend/internal/mealplan"
	"diet-management-backend/internal/patient"
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/user"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// app holds the stores of the selected back-end and the services built on
// top of them.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	users     user.UserRepository
	patients  patient.Repository
	mealPlans *subdoc.Collection
	anamnesis *subdoc.Collection
	energy    *subdoc.Collection

	indexers []db.Indexer
	gormDB   *gorm.DB
	closers  []func() error

	userService    user.Service
	patientService patient.Service
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	stores := map[string]subdoc.Store{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		gormDB, err := db.ConnectPostgres(cfg, log)
		if err != nil {
			return nil, err
		}
		a.gormDB = gormDB
		a.closers = append(a.closers, func() error { return db.ClosePostgres(gormDB) })
		a.users = user.NewGormRepository(gormDB)
		a.patients = patient.NewGormRepository(gormDB)
		for _, layout := range subdoc.Layouts() {
			stores[layout.Kind] = subdoc.NewGormStore(gormDB, layout)
		}

	case config.DriverMemory:
		log.Warn().Msg("Using the in-memory store, data is lost on exit")
		a.users = user.NewMemoryRepository()
		a.patients = patient.NewMemoryRepository()
		for _, layout := range subdoc.Layouts() {
			stores[layout.Kind] = subdoc.NewMemoryStore(layout)
		}

	default:
		client, database, err := db.ConnectMongo(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		})
		a.users = user.NewMongoRepository(database)
		a.patients = patient.NewMongoRepository(database)
		for _, layout := range subdoc.Layouts() {
			stores[layout.Kind] = subdoc.NewMongoStore(database, layout)
		}
		a.indexers = db.MongoIndexers(database)
	}

	a.mealPlans = subdoc.NewCollection(stores[subdoc.MealPlans.Kind], log)
	a.anamnesis = subdoc.NewCollection(stores[subdoc.Anamnesis.Kind], log)
	a.energy = subdoc.NewCollection(stores[subdoc.EnergyCalculations.Kind], log)

	a.userService = user.NewService(a.users)
	a.patientService = patient.NewService(a.patients, a.mealPlans, a.anamnesis, a.energy)
	return a, nil
}

func (a *app) collections() []*subdoc.Collection {
	return []*subdoc.Collection{a.mealPlans, a.anamnesis, a.energy}
}

func (a *app) mealPlanService() mealplan.Service {
	return mealplan.NewService(a.mealPlans, a.patientService)
}

func (a *app) anamnesisService() anamnesis.Service {
	return anamnesis.NewService(a.anamnesis, a.patientService)
}

func (a *app) energyService() energy.Service {
	return energy.NewService(a.energy, a.patientService)
}

func (a *app) seeder() *db.Seeder {
	return &db.Seeder{
		Users:     a.users,
		UserSvc:   a.userService,
		Patients:  a.patients,
		PatientSv: a.patientService,
		MealPlans: a.mealPlanService(),
		Anamnesis: a.anamnesisService(),
		Energy:    a.energyService(),
		Log:       a.log,
	}
}

func (a *app) migrate(ctx context.Context) error {
	if a.gormDB != nil {
		return db.Migrate(a.gormDB, a.log)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return db.EnsureIndexes(ctx, a.log, a.indexers...)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error().Err(err).Msg("Failed to close store")
		}
	}
}
