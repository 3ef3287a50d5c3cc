package mealplan

import (
	"context"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/subdoc"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Create(ctx context.Context, userID, patientID string, form *CreateForm) (*MealPlans, error)
	List(ctx context.Context, userID, patientID string) (*MealPlans, error)
	Patch(ctx context.Context, userID, patientID, planID string, form *PatchForm) (*MealPlans, error)
	Delete(ctx context.Context, userID, patientID, planID string) (*MealPlans, error)
}

type DefaultService struct {
	plans *subdoc.Resource[DietPlan]
}

func NewService(coll *subdoc.Collection, access subdoc.Access) Service {
	return &DefaultService{plans: subdoc.NewResource[DietPlan](coll, access, "meal plan")}
}

func (s *DefaultService) Create(ctx context.Context, userID, patientID string, form *CreateForm) (*MealPlans, error) {
	if err := checkPeriod(form.StartDate, form.EndDate); err != nil {
		return nil, err
	}

	plan := DietPlan{
		Title:       form.Title,
		Description: form.Description,
		StartDate:   form.StartDate,
		EndDate:     form.EndDate,
		Meals:       normalizeMeals(form.Meals),
		Notes:       form.Notes,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	return response(s.plans.Create(ctx, userID, patientID, plan))
}

func (s *DefaultService) List(ctx context.Context, userID, patientID string) (*MealPlans, error) {
	return response(s.plans.List(ctx, userID, patientID))
}

func (s *DefaultService) Patch(ctx context.Context, userID, patientID, planID string, form *PatchForm) (*MealPlans, error) {
	if form.StartDate != nil || form.EndDate != nil {
		start, end, err := s.period(ctx, userID, patientID, planID, form)
		if err != nil {
			return nil, err
		}
		if err := checkPeriod(start, end); err != nil {
			return nil, err
		}
	}
	if form.Meals != nil {
		meals := normalizeMeals(*form.Meals)
		form.Meals = &meals
	}

	return response(s.plans.Patch(ctx, userID, patientID, planID, form))
}

func (s *DefaultService) Delete(ctx context.Context, userID, patientID, planID string) (*MealPlans, error) {
	return response(s.plans.Delete(ctx, userID, patientID, planID))
}

// period returns the dates the plan would have after form is applied. A
// date the form leaves out is taken from the stored plan.
func (s *DefaultService) period(ctx context.Context, userID, patientID, planID string, form *PatchForm) (string, string, error) {
	var start, end string
	if form.StartDate == nil || form.EndDate == nil {
		stored, err := s.stored(ctx, userID, patientID, planID)
		if err != nil {
			return "", "", err
		}
		if stored != nil {
			start, end = stored.StartDate, stored.EndDate
		}
	}
	if form.StartDate != nil {
		start = *form.StartDate
	}
	if form.EndDate != nil {
		end = *form.EndDate
	}
	return start, end, nil
}

// stored looks up one plan. A malformed or unknown id yields nil so the
// patch itself reports it.
func (s *DefaultService) stored(ctx context.Context, userID, patientID, planID string) (*DietPlan, error) {
	id, err := primitive.ObjectIDFromHex(planID)
	if err != nil {
		return nil, nil
	}
	doc, err := s.plans.List(ctx, userID, patientID)
	if err != nil {
		return nil, err
	}
	for i := range doc.Items {
		if doc.Items[i].ID == id {
			return &doc.Items[i], nil
		}
	}
	return nil, nil
}

// checkPeriod relies on YYYY-MM-DD dates sorting like the days they name.
func checkPeriod(start, end string) error {
	if start != "" && end != "" && end < start {
		return errors.BadRequest("end_date must not be before start_date", nil)
	}
	return nil
}

// normalizeMeals stores empty lists instead of nulls.
func normalizeMeals(meals []Meal) []Meal {
	out := make([]Meal, 0, len(meals))
	for _, m := range meals {
		if m.Foods == nil {
			m.Foods = []Food{}
		}
		out = append(out, m)
	}
	return out
}

func response(doc *subdoc.Document[DietPlan], err error) (*MealPlans, error) {
	if err != nil {
		return nil, err
	}
	return &MealPlans{ID: doc.ID, Patient: doc.Patient, Plans: doc.Items}, nil
}
