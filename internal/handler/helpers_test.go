package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/keyfold/keyfold/internal/models"
)

// In-memory fakes shared across handler tests.

type fakeVaultRepo struct {
	vaults map[uuid.UUID]*models.Vault
}

func newFakeVaultRepo() *fakeVaultRepo {
	return &fakeVaultRepo{vaults: make(map[uuid.UUID]*models.Vault)}
}

func (r *fakeVaultRepo) Create(ctx context.Context, vault *models.Vault) error {
	if vault.ID == uuid.Nil {
		vault.ID = uuid.New()
	}
	vault.CreatedAt = time.Now()
	vault.UpdatedAt = vault.CreatedAt
	r.vaults[vault.ID] = vault
	return nil
}

func (r *fakeVaultRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error) {
	return r.vaults[id], nil
}

func (r *fakeVaultRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Vault, error) {
	var out []*models.Vault
	for _, v := range r.vaults {
		if v.OwnerUserID != nil && *v.OwnerUserID == ownerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVaultRepo) List(ctx context.Context) ([]*models.Vault, error) {
	var out []*models.Vault
	for _, v := range r.vaults {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeVaultRepo) Update(ctx context.Context, vault *models.Vault) error {
	if _, ok := r.vaults[vault.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.vaults[vault.ID] = vault
	return nil
}

func (r *fakeVaultRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.vaults[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.vaults, id)
	return nil
}

type fakeCredentialRepo struct {
	creds map[uuid.UUID]*models.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[uuid.UUID]*models.Credential)}
}

func (r *fakeCredentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	cred.CreatedAt = time.Now()
	cred.UpdatedAt = cred.CreatedAt
	clone := *cred
	r.creds[cred.ID] = &clone
	return nil
}

func (r *fakeCredentialRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	c, ok := r.creds[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCredentialRepo) ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Credential, error) {
	var out []*models.Credential
	for _, c := range r.creds {
		if c.VaultID == vaultID {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) Update(ctx context.Context, cred *models.Credential) error {
	if _, ok := r.creds[cred.ID]; !ok {
		return pgx.ErrNoRows
	}
	cred.UpdatedAt = time.Now()
	clone := *cred
	r.creds[cred.ID] = &clone
	return nil
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.creds[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.creds, id)
	return nil
}

type fakeAuditService struct {
	events    []models.AuditEvent
	logs      []*models.AuditLog
	lastQuery models.AuditLogQuery
}

func (s *fakeAuditService) Record(ctx context.Context, r *http.Request, event models.AuditEvent, actorID *uuid.UUID, resourceType models.ResourceType, resourceID string) {
	s.events = append(s.events, event)
}

func (s *fakeAuditService) Query(ctx context.Context, q models.AuditLogQuery) ([]*models.AuditLog, error) {
	s.lastQuery = q
	return s.logs, nil
}

func (s *fakeAuditService) GetByID(ctx context.Context, id string) (*models.AuditLog, error) {
	for _, l := range s.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (s *fakeAuditService) CleanupOldLogs(ctx context.Context) (int64, error) {
	return 0, nil
}
