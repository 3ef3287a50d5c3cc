package mealplan

import (
	"bytes"
	"context"
	"diet-management-backend/auth"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/middleware"
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/validation"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubAccess struct {
	patient primitive.ObjectID
	err     error
}

func (s stubAccess) EnsureAccess(ctx context.Context, userID, patientID string) (primitive.ObjectID, error) {
	return s.patient, s.err
}

type fixture struct {
	router  *gin.Engine
	store   *subdoc.MemoryStore
	patient primitive.ObjectID
	base    string
}

func setup(t *testing.T, access subdoc.Access) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Register()

	f := &fixture{
		store:   subdoc.NewMemoryStore(subdoc.MealPlans),
		patient: primitive.NewObjectID(),
	}
	if access == nil {
		access = stubAccess{patient: f.patient}
	}
	f.base = "/patients/" + f.patient.Hex() + "/meal-plans"

	handler := NewHandler(NewService(subdoc.NewCollection(f.store, zerolog.Nop()), access))

	f.router = gin.New()
	f.router.Use(middleware.ErrorHandler(zerolog.Nop()), func(c *gin.Context) {
		c.Set(auth.UserIDKey, primitive.NewObjectID().Hex())
	})
	f.router.POST("/patients/:patientId/meal-plans", handler.Create)
	f.router.GET("/patients/:patientId/meal-plans", handler.List)
	f.router.PATCH("/patients/:patientId/meal-plans/:itemId", handler.Patch)
	f.router.DELETE("/patients/:patientId/meal-plans/:itemId", handler.Delete)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, payload any) (*httptest.ResponseRecorder, MealPlans) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var plans MealPlans
	if w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	}
	return w, plans
}

func planTitles(plans MealPlans) []string {
	out := []string{}
	for _, p := range plans.Plans {
		out = append(out, p.Title)
	}
	return out
}

func TestCreate_FirstPlanCreatesDocument(t *testing.T) {
	f := setup(t, nil)

	w, plans := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, f.patient, plans.Patient)
	require.Len(t, plans.Plans, 1)
	assert.False(t, plans.Plans[0].ID.IsZero())
	assert.Equal(t, []Meal{}, plans.Plans[0].Meals)
}

func TestPatch_SameValueIsNoop(t *testing.T) {
	f := setup(t, nil)
	_, created := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})
	writes := f.store.Writes()

	title := "A"
	w, patched := f.do(t, http.MethodPatch, f.base+"/"+created.Plans[0].ID.Hex(), PatchForm{Title: &title})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.Plans, patched.Plans)
	assert.Equal(t, writes, f.store.Writes())
}

func TestPatch_KeepsOrder(t *testing.T) {
	f := setup(t, nil)
	_, first := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})
	f.do(t, http.MethodPost, f.base, CreateForm{Title: "B"})

	title := "A2"
	w, _ := f.do(t, http.MethodPatch, f.base+"/"+first.Plans[0].ID.Hex(), PatchForm{Title: &title})
	require.Equal(t, http.StatusOK, w.Code)

	_, listed := f.do(t, http.MethodGet, f.base, nil)
	assert.Equal(t, []string{"A2", "B"}, planTitles(listed))
}

func TestPatch_ReplacesMealsStructurally(t *testing.T) {
	f := setup(t, nil)
	meals := []Meal{{Name: "Breakfast", Time: "07:30", Foods: []Food{{Name: "Oats", Quantity: 40, Unit: "g"}}}}
	_, created := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A", Meals: meals})
	path := f.base + "/" + created.Plans[0].ID.Hex()
	writes := f.store.Writes()

	same := []Meal{{Name: "Breakfast", Time: "07:30", Foods: []Food{{Name: "Oats", Quantity: 40, Unit: "g"}}}}
	w, _ := f.do(t, http.MethodPatch, path, PatchForm{Meals: &same})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, writes, f.store.Writes())

	changed := []Meal{{Name: "Breakfast", Time: "08:00", Foods: []Food{{Name: "Oats", Quantity: 50, Unit: "g"}}}}
	w, patched := f.do(t, http.MethodPatch, path, PatchForm{Meals: &changed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, writes+1, f.store.Writes())
	assert.Equal(t, changed, patched.Plans[0].Meals)
	assert.Equal(t, "A", patched.Plans[0].Title)
}

func TestPatch_UnknownPlanIsNotFound(t *testing.T) {
	f := setup(t, nil)
	f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})

	title := "x"
	w, _ := f.do(t, http.MethodPatch, f.base+"/"+primitive.NewObjectID().Hex(), PatchForm{Title: &title})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatch_MalformedPlanIDIsBadRequest(t *testing.T) {
	f := setup(t, nil)

	title := "x"
	w, _ := f.do(t, http.MethodPatch, f.base+"/not-an-id", PatchForm{Title: &title})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatch_RejectsInvertedPeriod(t *testing.T) {
	f := setup(t, nil)
	_, created := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})

	start, end := "2024-03-10", "2024-03-01"
	w, _ := f.do(t, http.MethodPatch, f.base+"/"+created.Plans[0].ID.Hex(), PatchForm{StartDate: &start, EndDate: &end})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatch_ChecksSingleDateAgainstStoredPeriod(t *testing.T) {
	f := setup(t, nil)
	_, created := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A", StartDate: "2024-03-10", EndDate: "2024-03-20"})
	path := f.base + "/" + created.Plans[0].ID.Hex()
	writes := f.store.Writes()

	end := "2024-03-01"
	w, _ := f.do(t, http.MethodPatch, path, PatchForm{EndDate: &end})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	start := "2024-04-01"
	w, _ = f.do(t, http.MethodPatch, path, PatchForm{StartDate: &start})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, writes, f.store.Writes())

	end = "2024-03-31"
	w, patched := f.do(t, http.MethodPatch, path, PatchForm{EndDate: &end})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-10", patched.Plans[0].StartDate)
	assert.Equal(t, "2024-03-31", patched.Plans[0].EndDate)
}

func TestPatch_LegacyPlanIsReachable(t *testing.T) {
	f := setup(t, nil)
	legacy := primitive.NewObjectID()
	_, err := f.store.Seed(f.patient,
		subdoc.Item{"_id": legacy.Hex(), "title": "old", "meals": []any{}},
		subdoc.Item{"title": "no id", "meals": []any{}},
	)
	require.NoError(t, err)

	title := "renamed"
	w, patched := f.do(t, http.MethodPatch, f.base+"/"+legacy.Hex(), PatchForm{Title: &title})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"renamed", "no id"}, planTitles(patched))
	assert.Equal(t, legacy, patched.Plans[0].ID)
	assert.False(t, patched.Plans[1].ID.IsZero())
	assert.Equal(t, int64(2), f.store.Writes())
}

func TestCreate_ValidatesNestedMeals(t *testing.T) {
	f := setup(t, nil)

	w, _ := f.do(t, http.MethodPost, f.base, CreateForm{
		Title: "A",
		Meals: []Meal{{Name: "Lunch", Time: "25:00", Foods: []Food{{Name: "Rice", Quantity: 0, Unit: "g"}}}},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr errors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "clock", apiErr.Fields["meals[0].time"])
	assert.Equal(t, "gt=0", apiErr.Fields["meals[0].foods[0].quantity"])
	assert.Equal(t, int64(0), f.store.Writes())
}

func TestList_NoDocumentIsNotFound(t *testing.T) {
	f := setup(t, nil)

	w, _ := f.do(t, http.MethodGet, f.base, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_RemovesOnlyTarget(t *testing.T) {
	f := setup(t, nil)
	_, first := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})
	f.do(t, http.MethodPost, f.base, CreateForm{Title: "B"})

	w, remaining := f.do(t, http.MethodDelete, f.base+"/"+first.Plans[0].ID.Hex(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"B"}, planTitles(remaining))

	w, _ = f.do(t, http.MethodDelete, f.base+"/"+first.Plans[0].ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccessErrorsPropagate(t *testing.T) {
	f := setup(t, stubAccess{err: errors.Forbidden("Patient belongs to another user", nil)})

	w, _ := f.do(t, http.MethodPost, f.base, CreateForm{Title: "A"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodGet, f.base, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(0), f.store.Writes())
}
