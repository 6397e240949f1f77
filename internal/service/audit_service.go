package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/models"
	"github.com/keyfold/keyfold/internal/repository"
)

// defaultAuditRetention bounds how long audit entries are kept when no
// retention is configured.
const defaultAuditRetention = 90 * 24 * time.Hour

// AuditService records and queries audit events. Writes are best-effort: a
// failed audit insert is logged but never fails the request that triggered it.
type AuditService interface {
	Record(ctx context.Context, r *http.Request, event models.AuditEvent, actorID *uuid.UUID, resourceType models.ResourceType, resourceID string)
	Query(ctx context.Context, q models.AuditLogQuery) ([]*models.AuditLog, error)
	GetByID(ctx context.Context, id string) (*models.AuditLog, error)
	CleanupOldLogs(ctx context.Context) (int64, error)
}

type auditService struct {
	repo      repository.AuditRepository
	retention time.Duration
	logger    *slog.Logger
}

// NewAuditService creates a new audit service. Entries older than the
// retention window are purged by CleanupOldLogs.
func NewAuditService(repo repository.AuditRepository, retention time.Duration, logger *slog.Logger) AuditService {
	if retention <= 0 {
		retention = defaultAuditRetention
	}
	return &auditService{repo: repo, retention: retention, logger: logger}
}

func (s *auditService) Record(ctx context.Context, r *http.Request, event models.AuditEvent, actorID *uuid.UUID, resourceType models.ResourceType, resourceID string) {
	entry := &models.AuditLog{
		Event:        event,
		ActorID:      actorID,
		ResourceType: &resourceType,
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if r != nil {
		ip := r.RemoteAddr
		ua := r.UserAgent()
		entry.IPAddress = &ip
		if ua != "" {
			entry.UserAgent = &ua
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "event", event, "error", err)
	}
}

func (s *auditService) Query(ctx context.Context, q models.AuditLogQuery) ([]*models.AuditLog, error) {
	return s.repo.List(ctx, q)
}

func (s *auditService) GetByID(ctx context.Context, id string) (*models.AuditLog, error) {
	return s.repo.GetByID(ctx, id)
}

// CleanupOldLogs purges entries older than the retention window and returns
// the number deleted.
func (s *auditService) CleanupOldLogs(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired audit logs", "deleted", n)
	}
	return n, nil
}

// Compile-time check to ensure auditService implements AuditService.
var _ AuditService = (*auditService)(nil)
