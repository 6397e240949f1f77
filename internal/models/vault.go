package models

import (
	"time"

	"github.com/google/uuid"
)

// Vault is a named container of credentials owned by at most one user.
type Vault struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerUserID *uuid.UUID `json:"owner_user_id" db:"owner_user_id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
