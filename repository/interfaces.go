// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/safs-storefront/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// ErrDuplicateEmail is returned when an insert or update collides with the unique email index
var ErrDuplicateEmail = errors.New("email already exists")

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uuid.UUID) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AccountRepository defines operations for storefront accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	// ByEmail lowercases the address before lookup and returns nil when absent
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	CountAdmins(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	// UpdateFields applies update to every account matching filter and returns the number matched
	UpdateFields(ctx context.Context, filter models.AccountFilter, update models.AccountUpdate) (int64, error)
	DeleteByFilter(ctx context.Context, filter models.AccountFilter) (int64, error)
}

// AuditLogRepository defines operations for authentication audit logs
type AuditLogRepository interface {
	Save(ctx context.Context, entry *models.AuditLog) error
	ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error)
	Count(ctx context.Context, filter models.AuditLogFilter) (int64, error)
	CountByAction(ctx context.Context, filter models.AuditLogFilter) (map[string]int64, error)
}

// Transactor runs fn with a transaction carried in its context.
// Repositories pick the transaction up through TxContextKey.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}
