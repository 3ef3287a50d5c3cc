package db

import (
	"context"
	"diet-management-backend/internal/anamnesis"
	"diet-management-backend/internal/energy"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/mealplan"
	"diet-management-backend/internal/patient"
	"diet-management-backend/internal/user"
	"diet-management-backend/internal/validation"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const seedPageSize = 100

// Fixtures is the content of a seed file:
//
//	users:
//	  - name: Test User
//	    email: test@example.com
//	    password: password123
//	    patients:
//	      - name: Jane Roe
//	        email: jane@example.com
//	        meal_plans: [{title: Cutting, meals: [...]}]
//	        anamnesis: [{date: "2024-01-15", main_complaint: fatigue}]
//	        energy_calculations: [{formula: mifflin_st_jeor, weight_kg: 70, ...}]
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
}

type UserFixture struct {
	Name     string           `yaml:"name"`
	Email    string           `yaml:"email"`
	Password string           `yaml:"password"`
	Patients []PatientFixture `yaml:"patients"`
}

// PatientFixture keeps request bodies as plain maps; they go through the
// same json names and validation rules as the HTTP API.
type PatientFixture struct {
	MealPlans          []map[string]any `yaml:"meal_plans"`
	Anamnesis          []map[string]any `yaml:"anamnesis"`
	EnergyCalculations []map[string]any `yaml:"energy_calculations"`
	Fields             map[string]any   `yaml:",inline"`
}

// SeedReport counts what a seed run created.
type SeedReport struct {
	Users     int
	Patients  int
	SubItems  int
	Unchanged int
}

// LoadFixtures reads a YAML seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFixtures(f)
}

func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var fixtures Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fixtures); err != nil && !stdErrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fixtures, nil
}

// Seeder creates fixtures through the services, so seeded data obeys the
// same rules as data created over HTTP. Running it twice creates nothing
// the second time: users and patients are matched by email, and the sub
// items of a patient are only seeded while that kind has no document yet.
type Seeder struct {
	Users     user.UserRepository
	UserSvc   user.Service
	Patients  patient.Repository
	PatientSv patient.Service
	MealPlans mealplan.Service
	Anamnesis anamnesis.Service
	Energy    energy.Service
	Log       zerolog.Logger

	validate *validator.Validate
}

func (s *Seeder) Seed(ctx context.Context, fixtures *Fixtures) (SeedReport, error) {
	var report SeedReport
	s.validate = validator.New()
	s.validate.SetTagName("binding")
	validation.Install(s.validate)

	for _, uf := range fixtures.Users {
		u, created, err := s.ensureUser(ctx, uf)
		if err != nil {
			return report, fmt.Errorf("user %s: %w", uf.Email, err)
		}
		if created {
			report.Users++
		} else {
			report.Unchanged++
		}

		for i, pf := range uf.Patients {
			if err := s.seedPatient(ctx, u, pf, &report); err != nil {
				return report, fmt.Errorf("user %s patient #%d: %w", uf.Email, i+1, err)
			}
		}
	}

	s.Log.Info().
		Int("users", report.Users).
		Int("patients", report.Patients).
		Int("sub_items", report.SubItems).
		Int("unchanged", report.Unchanged).
		Msg("Seed finished")
	return report, nil
}

func (s *Seeder) ensureUser(ctx context.Context, uf UserFixture) (*user.User, bool, error) {
	existing, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(uf.Email)))
	if err == nil {
		return existing, false, nil
	}
	if !stdErrors.Is(err, user.ErrNotFound) {
		return nil, false, err
	}

	u := &user.User{Name: uf.Name, Email: uf.Email, Password: uf.Password}
	if err := s.UserSvc.Register(ctx, u); err != nil {
		return nil, false, err
	}
	s.Log.Info().Str("email", u.Email).Msg("Created seed user")
	return u, true, nil
}

func (s *Seeder) seedPatient(ctx context.Context, u *user.User, pf PatientFixture, report *SeedReport) error {
	var form patient.Form
	if err := s.bind(pf.Fields, &form); err != nil {
		return err
	}

	p, err := s.findPatient(ctx, u, form.Email)
	if err != nil {
		return err
	}
	if p == nil {
		p, err = s.PatientSv.Create(ctx, u.ID.Hex(), &form)
		if err != nil {
			return err
		}
		report.Patients++
	} else {
		report.Unchanged++
	}

	userID, patientID := u.ID.Hex(), p.ID.Hex()

	kinds := []func() (int, error){
		func() (int, error) {
			return seedKind(s, pf.MealPlans,
				func() error {
					_, err := s.MealPlans.List(ctx, userID, patientID)
					return err
				},
				func(f *mealplan.CreateForm) error {
					_, err := s.MealPlans.Create(ctx, userID, patientID, f)
					return err
				})
		},
		func() (int, error) {
			return seedKind(s, pf.Anamnesis,
				func() error {
					_, err := s.Anamnesis.List(ctx, userID, patientID)
					return err
				},
				func(f *anamnesis.CreateForm) error {
					_, err := s.Anamnesis.Create(ctx, userID, patientID, f)
					return err
				})
		},
		func() (int, error) {
			return seedKind(s, pf.EnergyCalculations,
				func() error {
					_, err := s.Energy.List(ctx, userID, patientID, 1, 1)
					return err
				},
				func(f *energy.CreateForm) error {
					_, err := s.Energy.Create(ctx, userID, patientID, f)
					return err
				})
		},
	}
	for _, seed := range kinds {
		n, err := seed()
		report.SubItems += n
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) findPatient(ctx context.Context, u *user.User, email string) (*patient.Patient, error) {
	for page := 1; ; page++ {
		patients, total, err := s.Patients.ListByUser(ctx, u.ID, page, seedPageSize)
		if err != nil {
			return nil, err
		}
		for i := range patients {
			if strings.EqualFold(patients[i].Email, email) {
				return &patients[i], nil
			}
		}
		if int64(page*seedPageSize) >= total || len(patients) == 0 {
			return nil, nil
		}
	}
}

// bind decodes a fixture map into a request form by its json names and
// runs the form's validation rules.
func (s *Seeder) bind(raw map[string]any, form any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, form); err != nil {
		return err
	}
	if err := s.validate.Struct(form); err != nil {
		return errors.NewValidationError(err)
	}
	return nil
}

// seedKind creates one kind of sub item, unless the patient already has a
// document of that kind.
func seedKind[F any](s *Seeder, raws []map[string]any, list func() error, create func(*F) error) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	if err := list(); err == nil {
		return 0, nil
	} else if !isNotFound(err) {
		return 0, err
	}

	for i, raw := range raws {
		var form F
		if err := s.bind(raw, &form); err != nil {
			return i, fmt.Errorf("item #%d: %w", i+1, err)
		}
		if err := create(&form); err != nil {
			return i, fmt.Errorf("item #%d: %w", i+1, err)
		}
	}
	return len(raws), nil
}

func isNotFound(err error) bool {
	var apiErr *errors.APIError
	return stdErrors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
