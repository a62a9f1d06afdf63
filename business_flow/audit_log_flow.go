package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
)

// AuditLogFlow serves the admin view of authentication audit entries
type AuditLogFlow interface {
	ListAuditLogs(ctx context.Context, req *dto.ListAuditLogsRequest) (*dto.ListAuditLogsResponse, error)
}

type AuditLogFlowImpl struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditLogFlow(auditRepo repository.AuditLogRepository) AuditLogFlow {
	return &AuditLogFlowImpl{auditRepo: auditRepo}
}

func (f *AuditLogFlowImpl) ListAuditLogs(ctx context.Context, req *dto.ListAuditLogsRequest) (*dto.ListAuditLogsResponse, error) {
	if req == nil {
		req = &dto.ListAuditLogsRequest{}
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = utils.DefaultAuditLogPageSize
	}
	if pageSize > utils.MaxAuditLogPageSize {
		pageSize = utils.MaxAuditLogPageSize
	}

	filter := models.AuditLogFilter{}
	if req.Action != "" {
		if !models.IsValidAuditAction(req.Action) {
			return nil, NewBusinessError("INVALID_AUDIT_ACTION", "Unknown audit action", ErrInvalidAuditAction)
		}
		filter.Action = utils.ToPtr(req.Action)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		filter.Email = utils.ToPtr(email)
	}
	if req.Role != "" {
		filter.Role = utils.ToPtr(req.Role)
	}

	from, err := utils.ParseDateBound(strings.TrimSpace(req.From), false)
	if err != nil {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid from date", ErrInvalidDateRange)
	}
	to, err := utils.ParseDateBound(strings.TrimSpace(req.To), true)
	if err != nil {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid to date", ErrInvalidDateRange)
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "From date is after to date", ErrInvalidDateRange)
	}
	filter.CreatedAfter = from
	filter.CreatedBefore = to

	total, err := f.auditRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("AUDIT_LOG_QUERY_FAILED", "Failed to count audit logs", err)
	}

	entries, err := f.auditRepo.ByFilter(ctx, filter, "timestamp DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("AUDIT_LOG_QUERY_FAILED", "Failed to list audit logs", err)
	}

	summary, err := f.auditRepo.CountByAction(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("AUDIT_LOG_QUERY_FAILED", "Failed to summarize audit logs", err)
	}

	logs := make([]dto.AuditLogDTO, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, ToAuditLogDTO(*e))
	}

	return &dto.ListAuditLogsResponse{
		Success:    true,
		Logs:       logs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		Summary:    summary,
	}, nil
}

// AuditRecorder writes authentication audit entries. Failures are logged and never
// surface to the caller.
type AuditRecorder struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditRecorder(auditRepo repository.AuditLogRepository) *AuditRecorder {
	return &AuditRecorder{auditRepo: auditRepo}
}

// Record stores one entry. account may be nil when the email matched nothing.
func (r *AuditRecorder) Record(ctx context.Context, action, email string, account *models.Account, success bool, details string, metadata *ClientMetadata) {
	if r == nil || r.auditRepo == nil {
		return
	}

	entry := &models.AuditLog{
		Email:     utils.NormalizeEmail(email),
		Action:    action,
		Success:   success,
		Details:   details,
		Timestamp: utils.UTCNow(),
	}
	if account != nil {
		id := account.ID
		entry.UserID = &id
		entry.Email = account.Email
		entry.CompanyName = account.CompanyName
		entry.Role = account.Role
	}
	if metadata != nil {
		entry.IPAddress = metadata.IPAddress
		entry.UserAgent = metadata.UserAgent
		entry.RequestID = metadata.RequestID
	}
	if entry.RequestID == "" {
		entry.RequestID = RequestIDFromContext(ctx)
	}

	if err := r.auditRepo.Save(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s for %s: %v", action, entry.Email, err)
	}
}

// RecordActor stores an entry for an authenticated caller whose account row may be gone
func (r *AuditRecorder) RecordActor(ctx context.Context, action string, actor Actor, account *models.Account, details string, metadata *ClientMetadata) {
	if account == nil {
		account = &models.Account{
			ID:    actor.AccountID,
			Email: actor.Email,
			Role:  actor.Role,
		}
		if actor.AccountID == uuid.Nil {
			account = nil
		}
	}
	r.Record(ctx, action, actor.Email, account, true, details, metadata)
}
