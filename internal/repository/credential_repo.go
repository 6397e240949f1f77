package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/keyfold/keyfold/internal/models"
)

// Codec encrypts credential secrets before they touch the database and
// decrypts them on the way out.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialRepository defines the interface for credential data operations.
// Passwords are encrypted on write and decrypted on read; the stored
// ciphertext never leaves the repository.
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Credential, error)
	Update(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type credentialRepo struct {
	pool  DB
	codec Codec
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(pool DB, codec Codec) CredentialRepository {
	return &credentialRepo{pool: pool, codec: codec}
}

// Create encrypts the password and inserts a new credential.
func (r *credentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	encrypted, err := r.codec.Encrypt(cred.Password)
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}

	query := `
		INSERT INTO credentials (id, vault_id, username, password_encrypted, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		cred.ID,
		cred.VaultID,
		cred.Username,
		encrypted,
		cred.URL,
	).Scan(&cred.CreatedAt, &cred.UpdatedAt)
}

// GetByID retrieves a credential with its password decrypted.
func (r *credentialRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	query := `
		SELECT id, vault_id, username, password_encrypted, url, created_at, updated_at
		FROM credentials WHERE id = $1`

	var cred models.Credential
	var encrypted string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&cred.ID,
		&cred.VaultID,
		&cred.Username,
		&encrypted,
		&cred.URL,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cred.Password, err = r.codec.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypting credential %s: %w", cred.ID, err)
	}
	return &cred, nil
}

// ListByVault retrieves all credentials in a vault with passwords decrypted,
// newest first.
func (r *credentialRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Credential, error) {
	query := `
		SELECT id, vault_id, username, password_encrypted, url, created_at, updated_at
		FROM credentials
		WHERE vault_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, vaultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		var cred models.Credential
		var encrypted string
		if err := rows.Scan(
			&cred.ID,
			&cred.VaultID,
			&cred.Username,
			&encrypted,
			&cred.URL,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cred.Password, err = r.codec.Decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypting credential %s: %w", cred.ID, err)
		}
		creds = append(creds, &cred)
	}
	return creds, rows.Err()
}

// Update re-encrypts the password and updates the credential.
func (r *credentialRepo) Update(ctx context.Context, cred *models.Credential) error {
	encrypted, err := r.codec.Encrypt(cred.Password)
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}

	query := `
		UPDATE credentials
		SET username = $2, password_encrypted = $3, url = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = r.pool.QueryRow(ctx, query, cred.ID, cred.Username, encrypted, cred.URL).Scan(&cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	return err
}

// Delete permanently removes a credential.
func (r *credentialRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM credentials WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Compile-time check to ensure credentialRepo implements CredentialRepository.
var _ CredentialRepository = (*credentialRepo)(nil)
