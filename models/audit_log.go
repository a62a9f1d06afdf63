package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID `gorm:"type:uuid;index:idx_audit_user_id" json:"user_id,omitempty"`
	Email       string     `gorm:"size:255;not null;index:idx_audit_email" json:"email"`
	CompanyName string     `gorm:"size:255;not null;default:''" json:"company_name"`
	Action      string     `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Role        string     `gorm:"size:20;not null;default:'';index:idx_audit_role" json:"role"`
	IPAddress   string     `gorm:"size:64;not null;default:''" json:"ip_address"`
	UserAgent   string     `gorm:"type:text;not null;default:''" json:"user_agent"`
	RequestID   string     `gorm:"size:255;not null;default:''" json:"request_id"`
	Success     bool       `gorm:"not null;default:true;index:idx_audit_success" json:"success"`
	Details     string     `gorm:"type:text;not null;default:''" json:"details"`
	Timestamp   time.Time  `gorm:"not null;index:idx_audit_timestamp" json:"timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// BeforeCreate ensures ID and Timestamp are set
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}

// Audit action constants
const (
	AuditActionLogin         = "login"
	AuditActionLogout        = "logout"
	AuditActionLoginFailed   = "login_failed"
	AuditActionPasswordReset = "password_reset"
)

// IsValidAuditAction reports whether action is a recorded audit action
func IsValidAuditAction(action string) bool {
	switch action {
	case AuditActionLogin, AuditActionLogout, AuditActionLoginFailed, AuditActionPasswordReset:
		return true
	}
	return false
}

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	UserID        *uuid.UUID
	Action        *string
	Email         *string // case-insensitive substring
	Role          *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return !a.Success
}
