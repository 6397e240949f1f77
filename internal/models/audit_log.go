package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEvent represents the type of audit event.
type AuditEvent string

const (
	AuditEventAuthLogin  AuditEvent = "auth.login"
	AuditEventAuthLogout AuditEvent = "auth.logout"

	AuditEventVaultCreated AuditEvent = "vault.created"
	AuditEventVaultDeleted AuditEvent = "vault.deleted"

	AuditEventCredentialCreated AuditEvent = "credential.created"
	AuditEventCredentialUpdated AuditEvent = "credential.updated"
	AuditEventCredentialDeleted AuditEvent = "credential.deleted"
)

// ResourceType represents the type of resource being acted upon.
type ResourceType string

const (
	ResourceTypeUser       ResourceType = "user"
	ResourceTypeVault      ResourceType = "vault"
	ResourceTypeCredential ResourceType = "credential"
)

// AuditLog represents an audit log entry. Entries record which entity was
// touched, never any credential material.
type AuditLog struct {
	ID           string          `json:"id" db:"id"`
	Event        AuditEvent      `json:"event" db:"event"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	ResourceType *ResourceType   `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty" db:"resource_id"`
	IPAddress    *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    *string         `json:"user_agent,omitempty" db:"user_agent"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// AuditLogQuery holds filter parameters for listing audit logs.
type AuditLogQuery struct {
	Event        *AuditEvent
	ActorID      *uuid.UUID
	ResourceType *ResourceType
	ResourceID   *string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
}
