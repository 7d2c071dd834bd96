package domain

import (
	"encoding/json"
	"time"
)

// AuditAction names an auditable engine event.
type AuditAction string

const (
	AuditSweepSkipped          AuditAction = "sweep.skipped"
	AuditSweepRunCreated       AuditAction = "sweep.run_created"
	AuditSweepRunCompleted     AuditAction = "sweep.run_completed"
	AuditSweepRunFailed        AuditAction = "sweep.run_failed"
	AuditWithdrawalReserved    AuditAction = "withdrawal.reserved"
	AuditWithdrawalCompleted   AuditAction = "withdrawal.completed"
	AuditWithdrawalCompensated AuditAction = "withdrawal.compensated"
	AuditIntegrityHoldPlaced   AuditAction = "integrity.hold_placed"
	AuditIntegrityHoldReleased AuditAction = "integrity.hold_released"
	AuditSettingsUpdated       AuditAction = "settings.updated"
	AuditRoundUpRetained       AuditAction = "roundup.retained"
)

// AuditLog is an append-only record of an engine decision, for user-visible history.
type AuditLog struct {
	AuditLogID string          `json:"auditLogID"`
	UserID     string          `json:"userID"`
	Action     AuditAction     `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityID,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
