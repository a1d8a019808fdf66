package models

import (
	"time"
)

// Patient represents an expecting mother registered by a clinic. The row's
// UUID doubles as the access token printed into the QR card, so it must
// never be reassigned for the lifetime of the record.
type Patient struct {
	BaseModel
	Name           string    `gorm:"size:255;not null" json:"name"`
	MotherName     string    `gorm:"size:255;not null" json:"motherName"`
	BirthDate      time.Time `json:"birthDate"`
	GestationalAge string    `gorm:"size:50" json:"gestationalAge"`
	Phone          *string   `gorm:"size:30" json:"phone,omitempty"`
	ClinicID       string    `gorm:"size:36;index;not null" json:"clinicId"`

	// Relations (not always preloaded)
	Clinic Clinic  `gorm:"foreignKey:ClinicID" json:"-"`
	Videos []Video `gorm:"foreignKey:PatientID" json:"videos,omitempty"`
}
