package models

import (
	"time"

	"gorm.io/gorm"
)

// Helmet — физический шлем. user_id nullable: шлем может быть ещё не привязан.
type Helmet struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID       *string    `gorm:"index;size:36" json:"user_id,omitempty"`
	SerialNumber string     `gorm:"uniqueIndex;size:128;not null" json:"serial_number"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
}
