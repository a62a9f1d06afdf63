package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/models"
	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
)

// RequestIDFromContext returns the request ID placed in ctx by the HTTP layer
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// ClientMetadata holds client information recorded with audit entries
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// Actor is the authenticated account performing an operation, taken from its session token
type Actor struct {
	AccountID uuid.UUID
	Email     string
	Role      string
	Status    string
}

// IsAdmin reports whether the actor's token carries the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ToAuthUser converts an account to the summary returned with session tokens
func ToAuthUser(account models.Account) dto.AuthUser {
	return dto.AuthUser{
		ID:            account.ID.String(),
		Email:         account.Email,
		CompanyName:   account.CompanyName,
		ContactPerson: account.ContactPerson,
		Role:          account.Role,
		Status:        account.Status,
	}
}

// ToCustomerDTO converts an account to its admin view, projecting out the password
func ToCustomerDTO(account models.Account) dto.CustomerDTO {
	out := dto.CustomerDTO{
		ID:            account.ID.String(),
		Email:         account.Email,
		CompanyName:   account.CompanyName,
		ContactPerson: account.ContactPerson,
		Phone:         account.Phone,
		Address:       account.Address,
		Role:          account.Role,
		Status:        account.Status,
		HasPassword:   account.HasCredential(),
		CreatedAt:     account.CreatedAt,
		LastLogin:     account.LastLogin,
		UpdatedAt:     account.UpdatedAt,
	}
	if account.StatusReason != nil {
		out.StatusReason = *account.StatusReason
	}
	if account.AddedBy != nil {
		out.AddedBy = account.AddedBy.String()
	}
	if account.UpdatedBy != nil {
		out.UpdatedBy = account.UpdatedBy.String()
	}
	return out
}

// ToAuditLogDTO converts an audit entry for the admin audit view
func ToAuditLogDTO(entry models.AuditLog) dto.AuditLogDTO {
	out := dto.AuditLogDTO{
		ID:          entry.ID.String(),
		Email:       entry.Email,
		CompanyName: entry.CompanyName,
		Action:      entry.Action,
		Role:        entry.Role,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Success:     entry.Success,
		Details:     entry.Details,
		Timestamp:   entry.Timestamp,
	}
	if entry.UserID != nil {
		out.UserID = entry.UserID.String()
	}
	return out
}

// parseAccountID parses a path ID. Malformed IDs cannot match any account.
func parseAccountID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

func parseAccountIDs(ids []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, ok := parseAccountID(raw)
		if !ok {
			return nil, ErrInvalidCustomerID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
