package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account resolved from an external OAuth identity.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         *string   `json:"name,omitempty" db:"name"`
	PictureURL   *string   `json:"picture_url,omitempty" db:"picture_url"`
	ProviderID   *string   `json:"-" db:"provider_id"`
	ProviderName *string   `json:"provider_name,omitempty" db:"provider_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
