package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a username/password/URL triple stored encrypted at rest.
// Password holds the decrypted plaintext on read paths and the supplied
// plaintext on write paths; only its encrypted form is persisted, and the
// ciphertext never leaves the repository layer.
type Credential struct {
	ID        uuid.UUID `json:"id" db:"id"`
	VaultID   uuid.UUID `json:"vault_id" db:"vault_id"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"password" db:"-"`
	URL       *string   `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
