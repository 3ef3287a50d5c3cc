package energy

import (
	"context"
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/validation"
	"time"
)

const defaultFactor = 1.0

type Service interface {
	Create(ctx context.Context, userID, patientID string, form *CreateForm) (*Calculations, error)
	List(ctx context.Context, userID, patientID string, page, pageSize int) (*Calculations, error)
	Patch(ctx context.Context, userID, patientID, calculationID string, form *PatchForm) (*Calculations, error)
	Delete(ctx context.Context, userID, patientID, calculationID string) (*Calculations, error)
}

type DefaultService struct {
	calculations *subdoc.Resource[Calculation]
	now          func() time.Time
}

func NewService(coll *subdoc.Collection, access subdoc.Access) Service {
	return &DefaultService{
		calculations: subdoc.NewResource[Calculation](coll, access, "energy calculation"),
		now:          time.Now,
	}
}

func (s *DefaultService) Create(ctx context.Context, userID, patientID string, form *CreateForm) (*Calculations, error) {
	now := s.now().UTC()
	calc := Calculation{
		Formula:        form.Formula,
		WeightKg:       form.WeightKg,
		HeightCm:       form.HeightCm,
		Age:            form.Age,
		Sex:            form.Sex,
		ActivityFactor: orDefault(form.ActivityFactor),
		InjuryFactor:   orDefault(form.InjuryFactor),
		Date:           form.Date,
		Notes:          form.Notes,
		CreatedAt:      now.Truncate(time.Millisecond),
	}
	if calc.Date == "" {
		calc.Date = now.Format(validation.DateLayout)
	}

	return response(s.calculations.Create(ctx, userID, patientID, calc))
}

// List answers one page of the patient's calculations, in insertion order.
func (s *DefaultService) List(ctx context.Context, userID, patientID string, page, pageSize int) (*Calculations, error) {
	calcs, err := response(s.calculations.List(ctx, userID, patientID))
	if err != nil {
		return nil, err
	}

	items, meta := subdoc.Paginate(calcs.Calculations, page, pageSize)
	calcs.Calculations = items
	calcs.Meta = &meta
	return calcs, nil
}

func (s *DefaultService) Patch(ctx context.Context, userID, patientID, calculationID string, form *PatchForm) (*Calculations, error) {
	return response(s.calculations.Patch(ctx, userID, patientID, calculationID, form))
}

func (s *DefaultService) Delete(ctx context.Context, userID, patientID, calculationID string) (*Calculations, error) {
	return response(s.calculations.Delete(ctx, userID, patientID, calculationID))
}

func orDefault(factor float64) float64 {
	if factor == 0 {
		return defaultFactor
	}
	return factor
}

func response(doc *subdoc.Document[Calculation], err error) (*Calculations, error) {
	if err != nil {
		return nil, err
	}
	return &Calculations{ID: doc.ID, Patient: doc.Patient, Calculations: doc.Items}, nil
}
