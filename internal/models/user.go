package models

import (
	"time"

	"gorm.io/gorm"
)

// User — человек (райдер или админ). Аутентификация — JWT-сессии,
// устройства сюда не ходят.
type User struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	FirstName             string `gorm:"size:255" json:"first_name,omitempty"`
	LastName              string `gorm:"size:255" json:"last_name,omitempty"`
	PhoneNumber           string `gorm:"size:64" json:"phone_number,omitempty"`
	EmergencyContactPhone string `gorm:"size:64" json:"emergency_contact_phone,omitempty"`
	IsAdmin               bool   `gorm:"default:false" json:"is_admin"`
}
