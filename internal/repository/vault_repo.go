package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/keyfold/keyfold/internal/models"
)

// VaultRepository defines the interface for vault data operations.
type VaultRepository interface {
	Create(ctx context.Context, vault *models.Vault) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Vault, error)
	List(ctx context.Context) ([]*models.Vault, error)
	Update(ctx context.Context, vault *models.Vault) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vaultRepo struct {
	pool DB
}

// NewVaultRepository creates a new vault repository.
func NewVaultRepository(pool DB) VaultRepository {
	return &vaultRepo{pool: pool}
}

// Create inserts a new vault into the database.
func (r *vaultRepo) Create(ctx context.Context, vault *models.Vault) error {
	query := `
		INSERT INTO vaults (id, owner_user_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if vault.ID == uuid.Nil {
		vault.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		vault.ID,
		vault.OwnerUserID,
		vault.Name,
		vault.Description,
	).Scan(&vault.CreatedAt, &vault.UpdatedAt)
}

// GetByID retrieves a vault by its UUID.
func (r *vaultRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error) {
	query := `
		SELECT id, owner_user_id, name, description, created_at, updated_at
		FROM vaults WHERE id = $1`

	var vault models.Vault
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&vault.ID,
		&vault.OwnerUserID,
		&vault.Name,
		&vault.Description,
		&vault.CreatedAt,
		&vault.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vault, nil
}

// ListByOwner retrieves all vaults owned by a user, newest first.
func (r *vaultRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Vault, error) {
	query := `
		SELECT id, owner_user_id, name, description, created_at, updated_at
		FROM vaults
		WHERE owner_user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []*models.Vault
	for rows.Next() {
		var vault models.Vault
		if err := rows.Scan(
			&vault.ID,
			&vault.OwnerUserID,
			&vault.Name,
			&vault.Description,
			&vault.CreatedAt,
			&vault.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vaults = append(vaults, &vault)
	}
	return vaults, rows.Err()
}

// List retrieves all vaults, newest first.
func (r *vaultRepo) List(ctx context.Context) ([]*models.Vault, error) {
	query := `
		SELECT id, owner_user_id, name, description, created_at, updated_at
		FROM vaults
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []*models.Vault
	for rows.Next() {
		var vault models.Vault
		if err := rows.Scan(
			&vault.ID,
			&vault.OwnerUserID,
			&vault.Name,
			&vault.Description,
			&vault.CreatedAt,
			&vault.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vaults = append(vaults, &vault)
	}
	return vaults, rows.Err()
}

// Update updates a vault's name and description.
func (r *vaultRepo) Update(ctx context.Context, vault *models.Vault) error {
	query := `
		UPDATE vaults
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, vault.ID, vault.Name, vault.Description).Scan(&vault.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	return err
}

// Delete removes a vault and its credentials in a single transaction.
func (r *vaultRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM credentials WHERE vault_id = $1`, id); err != nil {
		return fmt.Errorf("deleting vault credentials: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM vaults WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

// Compile-time check to ensure vaultRepo implements VaultRepository.
var _ VaultRepository = (*vaultRepo)(nil)
