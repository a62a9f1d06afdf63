package testing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
)

// MemoryAccountRepository is an in-memory AccountRepository for unit tests.
// It enforces the unique email index the way the database does.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	// FailWith makes every call return this error when set
	FailWith error
}

// NewMemoryAccountRepository creates an empty in-memory account store
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: map[uuid.UUID]*models.Account{}}
}

var _ repository.AccountRepository = (*MemoryAccountRepository)(nil)

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (r *MemoryAccountRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	if a, ok := r.accounts[id]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (r *MemoryAccountRepository) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	normalized := utils.NormalizeEmail(email)
	accounts, err := r.ByFilter(ctx, models.AccountFilter{Email: &normalized}, "", 1, 0)
	if err != nil || len(accounts) == 0 {
		return nil, err
	}
	return accounts[0], nil
}

func (r *MemoryAccountRepository) matches(a *models.Account, f models.AccountFilter) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	if f.IDs != nil {
		found := false
		for _, id := range f.IDs {
			if id == a.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Email != nil && a.Email != utils.NormalizeEmail(*f.Email) {
		return false
	}
	if f.Role != nil && a.Role != *f.Role {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		q := strings.ToLower(strings.TrimSpace(*f.Search))
		if !strings.Contains(strings.ToLower(a.Email), q) &&
			!strings.Contains(strings.ToLower(a.CompanyName), q) &&
			!strings.Contains(strings.ToLower(a.ContactPerson), q) {
			return false
		}
	}
	if f.CreatedAfter != nil && a.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && a.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryAccountRepository) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}

	var out []*models.Account
	for _, a := range r.accounts {
		if r.matches(a, filter) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryAccountRepository) Save(ctx context.Context, entity *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}

	for _, a := range r.accounts {
		if a.Email == entity.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}
	r.accounts[entity.ID] = clone(entity)
	return nil
}

func (r *MemoryAccountRepository) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	accounts, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(accounts)), err
}

func (r *MemoryAccountRepository) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *MemoryAccountRepository) CountAdmins(ctx context.Context) (int64, error) {
	role := models.RoleAdmin
	return r.Count(ctx, models.AccountFilter{Role: &role})
}

func (r *MemoryAccountRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if a, ok := r.accounts[id]; ok {
		t := at
		a.LastLogin = &t
	}
	return nil
}

func (r *MemoryAccountRepository) UpdateFields(ctx context.Context, filter models.AccountFilter, update models.AccountUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}

	var matched []*models.Account
	for _, a := range r.accounts {
		if r.matches(a, filter) {
			matched = append(matched, a)
		}
	}
	if update.Email != nil {
		for _, other := range r.accounts {
			if other.Email != *update.Email {
				continue
			}
			for _, m := range matched {
				if m.ID != other.ID {
					return 0, repository.ErrDuplicateEmail
				}
			}
		}
	}
	for _, a := range matched {
		update.Apply(a)
	}
	return int64(len(matched)), nil
}

func (r *MemoryAccountRepository) DeleteByFilter(ctx context.Context, filter models.AccountFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}

	var deleted int64
	for id, a := range r.accounts {
		if r.matches(a, filter) {
			delete(r.accounts, id)
			deleted++
		}
	}
	return deleted, nil
}

// All returns a snapshot of every stored account
func (r *MemoryAccountRepository) All() []*models.Account {
	accounts, _ := r.ByFilter(context.Background(), models.AccountFilter{}, "", 0, 0)
	return accounts
}

// MemoryAuditLogRepository is an in-memory AuditLogRepository for unit tests
type MemoryAuditLogRepository struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

var _ repository.AuditLogRepository = (*MemoryAuditLogRepository)(nil)

func (r *MemoryAuditLogRepository) Save(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

func auditMatches(e *models.AuditLog, f models.AuditLogFilter) bool {
	if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
		return false
	}
	if f.Action != nil && e.Action != *f.Action {
		return false
	}
	if f.Email != nil && !strings.Contains(strings.ToLower(e.Email), strings.ToLower(strings.TrimSpace(*f.Email))) {
		return false
	}
	if f.Role != nil && e.Role != *f.Role {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.CreatedAfter != nil && e.Timestamp.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && e.Timestamp.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *MemoryAuditLogRepository) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if auditMatches(r.entries[i], filter) {
			c := *r.entries[i]
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryAuditLogRepository) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	logs, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(logs)), err
}

func (r *MemoryAuditLogRepository) CountByAction(ctx context.Context, filter models.AuditLogFilter) (map[string]int64, error) {
	logs, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, l := range logs {
		counts[l.Action]++
	}
	return counts, nil
}

// Entries returns the recorded entries in insertion order
func (r *MemoryAuditLogRepository) Entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditLog, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// SerialTransactor runs transactions one at a time so in-memory stores
// see the same isolation a serializable database would give them
type SerialTransactor struct {
	mu sync.Mutex
}

var _ repository.Transactor = (*SerialTransactor)(nil)

func (t *SerialTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(serialTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, serialTxKey{}, true))
}

type serialTxKey struct{}
