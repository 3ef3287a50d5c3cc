package anamnesis

import (
	"context"
	"diet-management-backend/internal/subdoc"
	"time"
)

// Service records clinical history. Entries are appended and corrected,
// never removed.
type Service interface {
	Create(ctx context.Context, userID, patientID string, form *CreateForm) (*Anamnesis, error)
	List(ctx context.Context, userID, patientID string) (*Anamnesis, error)
	Patch(ctx context.Context, userID, patientID, entryID string, form *PatchForm) (*Anamnesis, error)
}

type DefaultService struct {
	entries *subdoc.Resource[Entry]
}

func NewService(coll *subdoc.Collection, access subdoc.Access) Service {
	return &DefaultService{entries: subdoc.NewResource[Entry](coll, access, "anamnesis entry")}
}

func (s *DefaultService) Create(ctx context.Context, userID, patientID string, form *CreateForm) (*Anamnesis, error) {
	entry := Entry{
		Date:               form.Date,
		MainComplaint:      form.MainComplaint,
		ClinicalHistory:    form.ClinicalHistory,
		FamilyHistory:      form.FamilyHistory,
		Medications:        orEmpty(form.Medications),
		Allergies:          orEmpty(form.Allergies),
		PhysicalActivity:   form.PhysicalActivity,
		SleepQuality:       form.SleepQuality,
		WaterIntakeLiters:  form.WaterIntakeLiters,
		Smoker:             form.Smoker,
		AlcoholConsumption: form.AlcoholConsumption,
		Notes:              form.Notes,
		CreatedAt:          time.Now().UTC().Truncate(time.Millisecond),
	}

	return response(s.entries.Create(ctx, userID, patientID, entry))
}

func (s *DefaultService) List(ctx context.Context, userID, patientID string) (*Anamnesis, error) {
	return response(s.entries.List(ctx, userID, patientID))
}

func (s *DefaultService) Patch(ctx context.Context, userID, patientID, entryID string, form *PatchForm) (*Anamnesis, error) {
	if form.Medications != nil {
		meds := orEmpty(*form.Medications)
		form.Medications = &meds
	}
	if form.Allergies != nil {
		allergies := orEmpty(*form.Allergies)
		form.Allergies = &allergies
	}

	return response(s.entries.Patch(ctx, userID, patientID, entryID, form))
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func response(doc *subdoc.Document[Entry], err error) (*Anamnesis, error) {
	if err != nil {
		return nil, err
	}
	return &Anamnesis{ID: doc.ID, Patient: doc.Patient, Entries: doc.Items}, nil
}
