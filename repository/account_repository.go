package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrEmptyFilter guards bulk writes against matching the whole table
var ErrEmptyFilter = errors.New("refusing bulk write without a filter")

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByEmail retrieves an account by email (case-insensitive)
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	normalized := utils.NormalizeEmail(email)
	accounts, err := r.ByFilter(ctx, models.AccountFilter{Email: &normalized}, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// CountAdmins returns the number of accounts holding the admin role
func (r *AccountRepositoryImpl) CountAdmins(ctx context.Context) (int64, error) {
	role := models.RoleAdmin
	return r.Count(ctx, models.AccountFilter{Role: &role})
}

// UpdateLastLogin stamps the last successful login time
func (r *AccountRepositoryImpl) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Account{}).Where("id = ?", id).Update("last_login", at).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// UpdateFields applies update to every account matching filter
func (r *AccountRepositoryImpl) UpdateFields(ctx context.Context, filter models.AccountFilter, update models.AccountUpdate) (int64, error) {
	if isEmptyAccountFilter(filter) {
		return 0, ErrEmptyFilter
	}

	cols := update.Columns()
	if len(cols) == 0 {
		return r.Count(ctx, filter)
	}

	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	result := query.Updates(cols)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to update accounts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteByFilter removes every account matching filter
func (r *AccountRepositoryImpl) DeleteByFilter(ctx context.Context, filter models.AccountFilter) (int64, error) {
	if isEmptyAccountFilter(filter) {
		return 0, ErrEmptyFilter
	}

	db := r.getDB(ctx)
	query := r.applyFilter(db, filter)

	result := query.Delete(&models.Account{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete accounts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.IDs != nil {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", utils.NormalizeEmail(*filter.Email))
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := "%" + escapeLike(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where("(email ILIKE ? OR company_name ILIKE ? OR contact_person ILIKE ?)", pattern, pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Account{})

	// Apply filters
	query = r.applyFilter(query, filter)

	// Apply ordering (default to newest first)
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	err := query.Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by filter: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// Exists checks if any account matches the filter
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func isEmptyAccountFilter(f models.AccountFilter) bool {
	return f.ID == nil && f.IDs == nil && f.Email == nil && f.Role == nil &&
		f.Status == nil && f.Search == nil && f.CreatedAfter == nil && f.CreatedBefore == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
