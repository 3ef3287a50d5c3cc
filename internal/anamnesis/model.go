package anamnesis

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is one dated clinical history record of a patient
type Entry struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date               string             `bson:"date" json:"date"`
	MainComplaint      string             `bson:"main_complaint" json:"main_complaint"`
	ClinicalHistory    string             `bson:"clinical_history,omitempty" json:"clinical_history,omitempty"`
	FamilyHistory      string             `bson:"family_history,omitempty" json:"family_history,omitempty"`
	Medications        []string           `bson:"medications" json:"medications"`
	Allergies          []string           `bson:"allergies" json:"allergies"`
	PhysicalActivity   string             `bson:"physical_activity,omitempty" json:"physical_activity,omitempty"`
	SleepQuality       string             `bson:"sleep_quality,omitempty" json:"sleep_quality,omitempty"`
	WaterIntakeLiters  float64            `bson:"water_intake_liters" json:"water_intake_liters"`
	Smoker             bool               `bson:"smoker" json:"smoker"`
	AlcoholConsumption string             `bson:"alcohol_consumption,omitempty" json:"alcohol_consumption,omitempty"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}

// Anamnesis is the response shape of every anamnesis endpoint
type Anamnesis struct {
	ID      primitive.ObjectID `json:"id"`
	Patient primitive.ObjectID `json:"patient"`
	Entries []Entry            `json:"entries"`
}

type CreateForm struct {
	Date               string   `json:"date" binding:"required,isodate"`
	MainComplaint      string   `json:"main_complaint" binding:"required,max=500"`
	ClinicalHistory    string   `json:"clinical_history" binding:"max=4000"`
	FamilyHistory      string   `json:"family_history" binding:"max=4000"`
	Medications        []string `json:"medications" binding:"omitempty,max=50,dive,required,max=120"`
	Allergies          []string `json:"allergies" binding:"omitempty,max=50,dive,required,max=120"`
	PhysicalActivity   string   `json:"physical_activity" binding:"omitempty,oneof=sedentary light moderate intense"`
	SleepQuality       string   `json:"sleep_quality" binding:"omitempty,oneof=poor fair good excellent"`
	WaterIntakeLiters  float64  `json:"water_intake_liters" binding:"gte=0,lte=20"`
	Smoker             bool     `json:"smoker"`
	AlcoholConsumption string   `json:"alcohol_consumption" binding:"omitempty,oneof=none occasional moderate heavy"`
	Notes              string   `json:"notes" binding:"max=2000"`
}

type PatchForm struct {
	Date               *string   `json:"date" bson:"date,omitempty" binding:"omitempty,isodate"`
	MainComplaint      *string   `json:"main_complaint" bson:"main_complaint,omitempty" binding:"omitempty,min=1,max=500"`
	ClinicalHistory    *string   `json:"clinical_history" bson:"clinical_history,omitempty" binding:"omitempty,max=4000"`
	FamilyHistory      *string   `json:"family_history" bson:"family_history,omitempty" binding:"omitempty,max=4000"`
	Medications        *[]string `json:"medications" bson:"medications,omitempty" binding:"omitempty,max=50,dive,required,max=120"`
	Allergies          *[]string `json:"allergies" bson:"allergies,omitempty" binding:"omitempty,max=50,dive,required,max=120"`
	PhysicalActivity   *string   `json:"physical_activity" bson:"physical_activity,omitempty" binding:"omitempty,oneof=sedentary light moderate intense"`
	SleepQuality       *string   `json:"sleep_quality" bson:"sleep_quality,omitempty" binding:"omitempty,oneof=poor fair good excellent"`
	WaterIntakeLiters  *float64  `json:"water_intake_liters" bson:"water_intake_liters,omitempty" binding:"omitempty,gte=0,lte=20"`
	Smoker             *bool     `json:"smoker" bson:"smoker,omitempty"`
	AlcoholConsumption *string   `json:"alcohol_consumption" bson:"alcohol_consumption,omitempty" binding:"omitempty,oneof=none occasional moderate heavy"`
	Notes              *string   `json:"notes" bson:"notes,omitempty" binding:"omitempty,max=2000"`
}
