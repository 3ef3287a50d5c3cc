package energy

import (
	"diet-management-backend/internal/subdoc"
	"diet-management-backend/internal/validation"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Formula struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Formulas lists the equations a calculation may be tagged with. The server
// stores the choice, it does not evaluate it.
var Formulas = []Formula{
	{Key: "harris_benedict_1919", Label: "Harris-Benedict (1919)"},
	{Key: "harris_benedict_1984", Label: "Harris-Benedict revised (1984)"},
	{Key: "mifflin_st_jeor", Label: "Mifflin-St Jeor (1990)"},
	{Key: "fao_who_2004", Label: "FAO/WHO/UNU (2004)"},
	{Key: "schofield_1985", Label: "Schofield (1985)"},
	{Key: "katch_mcardle", Label: "Katch-McArdle"},
	{Key: "cunningham_1980", Label: "Cunningham (1980)"},
	{Key: "iom_eer_2005", Label: "IOM EER (2005)"},
}

func init() {
	keys := make([]string, 0, len(Formulas))
	for _, f := range Formulas {
		keys = append(keys, f.Key)
	}
	validation.RegisterFormulas(keys...)
}

// Calculation is one energy requirement record of a patient
type Calculation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Formula        string             `bson:"formula" json:"formula"`
	WeightKg       float64            `bson:"weight_kg" json:"weight_kg"`
	HeightCm       float64            `bson:"height_cm" json:"height_cm"`
	Age            int                `bson:"age" json:"age"`
	Sex            string             `bson:"sex" json:"sex"`
	ActivityFactor float64            `bson:"activity_factor" json:"activity_factor"`
	InjuryFactor   float64            `bson:"injury_factor" json:"injury_factor"`
	Date           string             `bson:"date" json:"date"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// Calculations is the response shape of every energy calculation endpoint.
// Meta is only set on listings.
type Calculations struct {
	ID           primitive.ObjectID `json:"id"`
	Patient      primitive.ObjectID `json:"patient"`
	Calculations []Calculation      `json:"calculations"`
	Meta         *subdoc.PageMeta   `json:"meta,omitempty"`
}

type CreateForm struct {
	Formula        string  `json:"formula" binding:"required,energyformula"`
	WeightKg       float64 `json:"weight_kg" binding:"gt=0,lte=500"`
	HeightCm       float64 `json:"height_cm" binding:"gt=0,lte=300"`
	Age            int     `json:"age" binding:"gt=0,lte=130"`
	Sex            string  `json:"sex" binding:"required,oneof=male female"`
	ActivityFactor float64 `json:"activity_factor" binding:"omitempty,gte=1,lte=2.5"`
	InjuryFactor   float64 `json:"injury_factor" binding:"omitempty,gte=1,lte=2.5"`
	Date           string  `json:"date" binding:"omitempty,isodate"`
	Notes          string  `json:"notes" binding:"max=2000"`
}

type PatchForm struct {
	Formula        *string  `json:"formula" bson:"formula,omitempty" binding:"omitempty,energyformula"`
	WeightKg       *float64 `json:"weight_kg" bson:"weight_kg,omitempty" binding:"omitempty,gt=0,lte=500"`
	HeightCm       *float64 `json:"height_cm" bson:"height_cm,omitempty" binding:"omitempty,gt=0,lte=300"`
	Age            *int     `json:"age" bson:"age,omitempty" binding:"omitempty,gt=0,lte=130"`
	Sex            *string  `json:"sex" bson:"sex,omitempty" binding:"omitempty,oneof=male female"`
	ActivityFactor *float64 `json:"activity_factor" bson:"activity_factor,omitempty" binding:"omitempty,gte=1,lte=2.5"`
	InjuryFactor   *float64 `json:"injury_factor" bson:"injury_factor,omitempty" binding:"omitempty,gte=1,lte=2.5"`
	Date           *string  `json:"date" bson:"date,omitempty" binding:"omitempty,isodate"`
	Notes          *string  `json:"notes" bson:"notes,omitempty" binding:"omitempty,max=2000"`
}
