package models

// Video represents one uploaded ultrasound recording. FileURL is nil while
// the file has not reached durable storage; such rows are listed but not
// playable. StorageKey is the object key in the blob store, when one is
// configured.
type Video struct {
	BaseModel
	PatientID  string  `gorm:"size:36;index;not null" json:"patientId"`
	FileName   string  `gorm:"size:255;not null" json:"fileName"`
	FileSize   int64   `gorm:"not null" json:"fileSize"`
	FileURL    *string `gorm:"size:2048" json:"fileUrl,omitempty"`
	StorageKey *string `gorm:"size:512" json:"-"`

	// Relation to the owning patient
	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
