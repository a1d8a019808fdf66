package models

import (
	"time"
)

// RefreshToken is one live operator session. Each row is single-use: the
// refresh endpoint revokes it on rotation, and a forced sign-out revokes
// every row of the account at once.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	// Owning operator account
	User User `gorm:"foreignKey:UserID" json:"-"`
}
