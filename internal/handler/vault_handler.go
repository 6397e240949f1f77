package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/middleware"
	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/repository"
	apierrors "github.com/keyfold/keyfold/internal/pkg/errors"
	"github.com/keyfold/keyfold/internal/pkg/response"
	"github.com/keyfold/keyfold/internal/service"
)

// VaultHandler handles vault HTTP requests.
//
// Vault routes carry no authorization checks. The frontend does not send
// tokens on these routes yet; tightening this is a known followup.
type VaultHandler struct {
	vaults   repository.VaultRepository
	audit    service.AuditService
	validate *validator.Validate
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(vaults repository.VaultRepository, audit service.AuditService) *VaultHandler {
	return &VaultHandler{vaults: vaults, audit: audit, validate: newValidator()}
}

// Routes returns a chi router with vault routes.
func (h *VaultHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
	return r
}

// VaultResponse is the API shape of a vault.
type VaultResponse struct {
	ID          uuid.UUID  `json:"id"`
	OwnerUserID *uuid.UUID `json:"owner_user_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
}

func toVaultResponse(v *models.Vault) *VaultResponse {
	return &VaultResponse{
		ID:          v.ID,
		OwnerUserID: v.OwnerUserID,
		Name:        v.Name,
		Description: v.Description,
	}
}

// CreateVaultRequest is the HTTP request body for creating a vault.
type CreateVaultRequest struct {
	OwnerUserID *string `json:"owner_user_id" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
}

// Create handles POST /v1/vaults
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	vault := &models.Vault{
		Name:        req.Name,
		Description: req.Description,
	}

	// The frontend sends the owner explicitly; fall back to the
	// authenticated user when a token is present.
	if req.OwnerUserID != nil {
		ownerID, err := uuid.Parse(*req.OwnerUserID)
		if err != nil {
			response.Error(w, apierrors.NewValidationError("owner_user_id", "invalid UUID format"))
			return
		}
		vault.OwnerUserID = &ownerID
	} else if userID, ok := middleware.GetUserID(r.Context()); ok {
		vault.OwnerUserID = &userID
	}

	if err := h.vaults.Create(r.Context(), vault); err != nil {
		response.Error(w, err)
		return
	}

	h.audit.Record(r.Context(), r, models.AuditEventVaultCreated, vault.OwnerUserID, models.ResourceTypeVault, vault.ID.String())

	response.Created(w, "Vault created successfully", toVaultResponse(vault))
}

// List handles GET /v1/vaults?owner_id=user-uuid
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	var vaults []*models.Vault
	var err error

	ownerParam := r.URL.Query().Get("owner_id")
	switch {
	case ownerParam != "":
		ownerID, parseErr := uuid.Parse(ownerParam)
		if parseErr != nil {
			response.Error(w, apierrors.NewValidationError("owner_id", "invalid UUID format"))
			return
		}
		vaults, err = h.vaults.ListByOwner(r.Context(), ownerID)
	default:
		if userID, ok := middleware.GetUserID(r.Context()); ok {
			vaults, err = h.vaults.ListByOwner(r.Context(), userID)
		} else {
			vaults, err = h.vaults.List(r.Context())
		}
	}
	if err != nil {
		response.Error(w, err)
		return
	}

	items := make([]*VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		items = append(items, toVaultResponse(v))
	}

	response.OK(w, "ok", items)
}

// Delete handles DELETE /v1/vaults/{id}
//
// Deleting a vault removes all credentials in it.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "Vault")
		return
	}

	vault, err := h.vaults.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	if vault == nil {
		response.NotFound(w, "Vault")
		return
	}

	if err := h.vaults.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}

	h.audit.Record(r.Context(), r, models.AuditEventVaultDeleted, vault.OwnerUserID, models.ResourceTypeVault, id.String())

	response.OK(w, "Vault deleted successfully", nil)
}
