package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/pkg/response"
	"github.com/keyfold/keyfold/internal/pkg/ulid"
	"github.com/keyfold/keyfold/internal/service"
)

// AuditHandler exposes the audit trail read API.
type AuditHandler struct {
	audit service.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Routes returns a chi router with audit log routes.
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// List handles GET /v1/audit-logs
//
// Supported filters: event, actor_id, resource_type, resource_id,
// start_time, end_time (RFC3339) and limit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	var q models.AuditLogQuery

	if v := r.URL.Query().Get("event"); v != "" {
		event := models.AuditEvent(v)
		q.Event = &event
	}
	if v := r.URL.Query().Get("actor_id"); v != "" {
		actorID, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid actor_id")
			return
		}
		q.ActorID = &actorID
	}
	if v := r.URL.Query().Get("resource_type"); v != "" {
		resourceType := models.ResourceType(v)
		q.ResourceType = &resourceType
	}
	if v := r.URL.Query().Get("resource_id"); v != "" {
		q.ResourceID = &v
	}
	if v := r.URL.Query().Get("start_time"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "Invalid start_time, expected RFC3339")
			return
		}
		q.StartTime = &ts
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, "Invalid end_time, expected RFC3339")
			return
		}
		q.EndTime = &ts
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.BadRequest(w, "Invalid limit")
			return
		}
		q.Limit = n
	}

	logs, err := h.audit.Query(r.Context(), q)
	if err != nil {
		response.InternalError(w)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	response.OK(w, "ok", logs)
}

// Get handles GET /v1/audit-logs/{id}
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !ulid.IsValid(id) {
		response.BadRequest(w, "Invalid audit log id")
		return
	}

	entry, err := h.audit.GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	if entry == nil {
		response.NotFound(w, "Audit log")
		return
	}

	response.OK(w, "ok", entry)
}
