package models

import "time"

// AuditLog mirrors a row of audit_logs. Details is stored as JSONB.
type AuditLog struct {
	AuditLogID string    `json:"auditLogID"`
	UserID     string    `json:"userID"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   *string   `json:"entityID"` // Nullable
	Details    []byte    `json:"details"`  // Nullable
	CreatedAt  time.Time `json:"createdAt"`
}
