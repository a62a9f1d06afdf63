package dto

import "time"

// AuditLogDTO is a single authentication audit entry
type AuditLogDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Email       string    `json:"email" example:"buyer@parlour.co.za"`
	CompanyName string    `json:"companyName,omitempty"`
	Action      string    `json:"action" example:"login"`
	Role        string    `json:"role,omitempty" example:"customer"`
	IPAddress   string    `json:"ipAddress" example:"196.21.4.10"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Success     bool      `json:"success" example:"true"`
	Details     string    `json:"details,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ListAuditLogsRequest filters and pages the audit log
type ListAuditLogsRequest struct {
	Page     int    `query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int    `query:"pageSize" validate:"omitempty,min=1,max=200" example:"30"`
	Action   string `query:"action" validate:"omitempty,oneof=login logout login_failed password_reset" example:"login_failed"`
	Email    string `query:"email" validate:"omitempty,max=255"`
	Role     string `query:"role" validate:"omitempty,oneof=customer admin"`
	From     string `query:"from" example:"2025-01-01"`
	To       string `query:"to" example:"2025-01-31"`
}

// ListAuditLogsResponse is one page of audit entries plus per-action totals for the whole filter
type ListAuditLogsResponse struct {
	Success    bool             `json:"success" example:"true"`
	Logs       []AuditLogDTO    `json:"logs"`
	TotalCount int64            `json:"totalCount" example:"120"`
	Page       int              `json:"page" example:"1"`
	PageSize   int              `json:"pageSize" example:"30"`
	Summary    map[string]int64 `json:"summary"`
}
