package models

// Clinic represents a registered clinic. Each clinic is linked to exactly
// one operator account (UserID); deleting a clinic removes its patients and
// their videos.
type Clinic struct {
	BaseModel
	Name    string  `gorm:"size:255;not null" json:"name"`
	Address string  `gorm:"size:255;not null" json:"address"`
	City    string  `gorm:"size:100;not null" json:"city"`
	Email   string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone   *string `gorm:"size:30" json:"phone,omitempty"`
	UserID  *string `gorm:"size:36;index" json:"userId,omitempty"`

	// Relations (not always preloaded)
	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Patients []Patient `gorm:"foreignKey:ClinicID" json:"-"`
}
