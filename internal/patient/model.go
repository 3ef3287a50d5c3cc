package patient

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Patient is a person followed by one nutritionist (the owning user)
type Patient struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	BirthDate string             `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Sex       string             `bson:"sex,omitempty" json:"sex,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Form is the request body of create and update
type Form struct {
	Name      string `json:"name" binding:"required,min=1,max=120"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	BirthDate string `json:"birth_date" binding:"omitempty,isodate"`
	Sex       string `json:"sex" binding:"omitempty,oneof=male female"`
	Notes     string `json:"notes" binding:"omitempty,max=2000"`
}

func (f *Form) apply(p *Patient) {
	p.Name = f.Name
	p.Email = f.Email
	p.Phone = f.Phone
	p.BirthDate = f.BirthDate
	p.Sex = f.Sex
	p.Notes = f.Notes
}

// Row is the relational form of a Patient.
type Row struct {
	ID        string `gorm:"primaryKey;size:24"`
	UserID    string `gorm:"size:24;not null;uniqueIndex:idx_patient_user_email;index"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"size:255;not null;uniqueIndex:idx_patient_user_email"`
	Phone     string
	BirthDate string `gorm:"size:10"`
	Sex       string `gorm:"size:10"`
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Row) TableName() string {
	return "patients"
}

func toRow(p *Patient) *Row {
	return &Row{
		ID:        p.ID.Hex(),
		UserID:    p.UserID.Hex(),
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: p.BirthDate,
		Sex:       p.Sex,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r *Row) toPatient() Patient {
	id, _ := primitive.ObjectIDFromHex(r.ID)
	userID, _ := primitive.ObjectIDFromHex(r.UserID)
	return Patient{
		ID:        id,
		UserID:    userID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		BirthDate: r.BirthDate,
		Sex:       r.Sex,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
