package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/middleware"
	"github.com/keyfold/keyfold/internal/models"
	apierrors "github.com/keyfold/keyfold/internal/pkg/errors"
	"github.com/keyfold/keyfold/internal/pkg/response"
	"github.com/keyfold/keyfold/internal/repository"
	"github.com/keyfold/keyfold/internal/service"
)

// CredentialHandler handles credential HTTP requests.
//
// Like vaults, credential routes carry no authorization checks yet.
type CredentialHandler struct {
	credentials repository.CredentialRepository
	vaults      repository.VaultRepository
	audit       service.AuditService
	validate    *validator.Validate
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(
	credentials repository.CredentialRepository,
	vaults repository.VaultRepository,
	audit service.AuditService,
) *CredentialHandler {
	return &CredentialHandler{
		credentials: credentials,
		vaults:      vaults,
		audit:       audit,
		validate:    newValidator(),
	}
}

// Routes returns a chi router with credential routes.
func (h *CredentialHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// CredentialResponse is the API shape of a credential. The password is
// returned decrypted; only the ciphertext ever touches the database.
type CredentialResponse struct {
	ID        uuid.UUID `json:"id"`
	VaultID   uuid.UUID `json:"vault_id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	URL       *string   `json:"url"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

func toCredentialResponse(c *models.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:        c.ID,
		VaultID:   c.VaultID,
		Username:  c.Username,
		Password:  c.Password,
		URL:       c.URL,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateCredentialRequest is the HTTP request body for creating a credential.
type CreateCredentialRequest struct {
	VaultID  string  `json:"vault_id" validate:"required,uuid"`
	Username string  `json:"username" validate:"required,max=255"`
	Password string  `json:"password" validate:"required"`
	URL      *string `json:"url" validate:"omitempty,max=255"`
}

// Create handles POST /v1/credentials
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	vaultID, err := uuid.Parse(req.VaultID)
	if err != nil {
		response.Error(w, apierrors.NewValidationError("vault_id", "invalid UUID format"))
		return
	}

	vault, err := h.vaults.GetByID(r.Context(), vaultID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if vault == nil {
		response.Error(w, apierrors.NewValidationError("vault_id", "vault does not exist"))
		return
	}

	cred := &models.Credential{
		VaultID:  vaultID,
		Username: req.Username,
		Password: req.Password,
		URL:      req.URL,
	}
	if err := h.credentials.Create(r.Context(), cred); err != nil {
		response.Error(w, err)
		return
	}

	h.recordAudit(r, models.AuditEventCredentialCreated, cred.ID)
	middleware.IncrementCredentialsCreated()

	response.Created(w, "Credential created successfully", toCredentialResponse(cred))
}

// ListByVault handles GET /v1/vaults/{vault_id}/credentials
func (h *CredentialHandler) ListByVault(w http.ResponseWriter, r *http.Request) {
	vaultID, err := uuid.Parse(chi.URLParam(r, "vault_id"))
	if err != nil {
		response.NotFound(w, "Vault")
		return
	}

	vault, err := h.vaults.GetByID(r.Context(), vaultID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if vault == nil {
		response.NotFound(w, "Vault")
		return
	}

	creds, err := h.credentials.ListByVault(r.Context(), vaultID)
	if err != nil {
		response.Error(w, err)
		return
	}

	items := make([]*CredentialResponse, 0, len(creds))
	for _, c := range creds {
		items = append(items, toCredentialResponse(c))
	}

	response.OK(w, "ok", items)
}

// Get handles GET /v1/credentials/{id}
func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.OK(w, "ok", toCredentialResponse(cred))
}

// UpdateCredentialRequest is the HTTP request body for updating a credential.
// Absent fields keep their current values.
type UpdateCredentialRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	URL      *string `json:"url"`
}

// Update handles PUT /v1/credentials/{id}
func (h *CredentialHandler) Update(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req UpdateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	if req.Username != nil {
		if *req.Username == "" {
			response.Error(w, apierrors.NewValidationError("username", "username must not be empty"))
			return
		}
		if len(*req.Username) > 255 {
			response.Error(w, apierrors.NewValidationError("username", "username must not exceed 255 characters"))
			return
		}
		cred.Username = *req.Username
	}
	if req.Password != nil {
		if *req.Password == "" {
			response.Error(w, apierrors.NewValidationError("password", "password must not be empty"))
			return
		}
		cred.Password = *req.Password
	}
	if req.URL != nil {
		if len(*req.URL) > 255 {
			response.Error(w, apierrors.NewValidationError("url", "url must not exceed 255 characters"))
			return
		}
		cred.URL = req.URL
	}

	if err := h.credentials.Update(r.Context(), cred); err != nil {
		response.Error(w, err)
		return
	}

	h.recordAudit(r, models.AuditEventCredentialUpdated, cred.ID)

	response.OK(w, "Credential updated successfully", toCredentialResponse(cred))
}

// Delete handles DELETE /v1/credentials/{id}
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := h.credentials.Delete(r.Context(), cred.ID); err != nil {
		response.Error(w, err)
		return
	}

	h.recordAudit(r, models.AuditEventCredentialDeleted, cred.ID)

	response.OK(w, "Credential deleted successfully", nil)
}

// lookup resolves the {id} URL param to a credential, writing the 404
// response itself when the credential does not exist.
func (h *CredentialHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Credential, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Credential")
		return nil, false
	}

	cred, err := h.credentials.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return nil, false
	}
	if cred == nil {
		response.NotFound(w, "Credential")
		return nil, false
	}
	return cred, true
}

func (h *CredentialHandler) recordAudit(r *http.Request, event models.AuditEvent, credID uuid.UUID) {
	var actor *uuid.UUID
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		actor = &userID
	}
	h.audit.Record(r.Context(), r, event, actor, models.ResourceTypeCredential, credID.String())
}
