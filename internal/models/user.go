package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role enum
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClinic Role = "clinic"
)

// User represents an operator account: either the platform admin or the
// login account backing a clinic.
type User struct {
	BaseModel
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role     Role   `gorm:"size:20;default:'clinic'" json:"role"`

	// Relations (not always preloaded)
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// EnsureAdmin makes sure the reserved admin account exists and carries the
// admin role. Clinic accounts are only ever provisioned by the admin, so
// without this seed a fresh database has nobody who can sign in. An existing
// row is promoted if its role column disagrees; its password is never
// touched. Creating the account requires a password.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	var user User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.Role == RoleAdmin {
			return nil
		}
		return db.Model(&user).Update("role", RoleAdmin).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if password == "" {
		return errors.New("no admin account exists and no ADMIN_PASSWORD is set")
	}

	admin := User{Email: email, Role: RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	return db.Create(&admin).Error
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
