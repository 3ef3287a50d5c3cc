package mealplan

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Food struct {
	Name     string  `bson:"name" json:"name" binding:"required,max=120"`
	Quantity float64 `bson:"quantity" json:"quantity" binding:"gt=0"`
	Unit     string  `bson:"unit" json:"unit" binding:"required,max=20"`
}

type Meal struct {
	Name  string `bson:"name" json:"name" binding:"required,max=80"`
	Time  string `bson:"time,omitempty" json:"time,omitempty" binding:"omitempty,clock"`
	Foods []Food `bson:"foods" json:"foods" binding:"dive"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty" binding:"max=500"`
}

// DietPlan is one plan inside a patient's meal plan document
type DietPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   string             `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate     string             `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Meals       []Meal             `bson:"meals" json:"meals"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// MealPlans is the response shape of every meal plan endpoint
type MealPlans struct {
	ID      primitive.ObjectID `json:"id"`
	Patient primitive.ObjectID `json:"patient"`
	Plans   []DietPlan         `json:"plans"`
}

type CreateForm struct {
	Title       string `json:"title" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"max=1000"`
	StartDate   string `json:"start_date" binding:"omitempty,isodate"`
	EndDate     string `json:"end_date" binding:"omitempty,isodate"`
	Meals       []Meal `json:"meals" binding:"omitempty,dive"`
	Notes       string `json:"notes" binding:"max=2000"`
}

// PatchForm names only the fields a client wants to change; nil means
// leave as is.
type PatchForm struct {
	Title       *string `json:"title" bson:"title,omitempty" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" bson:"description,omitempty" binding:"omitempty,max=1000"`
	StartDate   *string `json:"start_date" bson:"start_date,omitempty" binding:"omitempty,isodate"`
	EndDate     *string `json:"end_date" bson:"end_date,omitempty" binding:"omitempty,isodate"`
	Meals       *[]Meal `json:"meals" bson:"meals,omitempty" binding:"omitempty,dive"`
	Notes       *string `json:"notes" bson:"notes,omitempty" binding:"omitempty,max=2000"`
}
