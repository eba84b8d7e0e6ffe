package models

import (
	"time"

	"github.com/google/uuid"
)

// Account holds login credentials. The customer-facing profile lives in the
// document store under users/{id}.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Provider  string    `gorm:"size:50;default:'email'" json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
