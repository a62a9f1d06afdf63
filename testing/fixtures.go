package testing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTestPassword is the plaintext behind accounts created by the fixtures
const DefaultTestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	Accounts repository.AccountRepository
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(accounts repository.AccountRepository) *TestFixtures {
	return &TestFixtures{Accounts: accounts}
}

// HashPassword hashes with the minimum bcrypt cost to keep tests fast
func HashPassword(plaintext string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("failed to hash password: %v", err))
	}
	return string(hash)
}

// AccountOption tweaks an account before it is stored
type AccountOption func(*models.Account)

func WithEmail(email string) AccountOption {
	return func(a *models.Account) { a.Email = email }
}

func WithRole(role string) AccountOption {
	return func(a *models.Account) { a.Role = role }
}

func WithStatus(status string) AccountOption {
	return func(a *models.Account) { a.Status = status }
}

func WithPassword(plaintext string) AccountOption {
	return func(a *models.Account) {
		if plaintext == "" {
			a.PasswordHash = ""
			return
		}
		a.PasswordHash = HashPassword(plaintext)
	}
}

func WithCompany(name string) AccountOption {
	return func(a *models.Account) { a.CompanyName = name }
}

func WithCreatedAt(at time.Time) AccountOption {
	return func(a *models.Account) { a.CreatedAt = at }
}

// CreateTestAccount stores a pending customer unless options say otherwise
func (tf *TestFixtures) CreateTestAccount(ctx context.Context, opts ...AccountOption) (*models.Account, error) {
	suffix := rand.Intn(900000) + 100000

	account := &models.Account{
		ID:            uuid.New(),
		Email:         fmt.Sprintf("buyer.%d@example.co.za", suffix),
		PasswordHash:  HashPassword(DefaultTestPassword),
		Role:          models.RoleCustomer,
		Status:        models.StatusPending,
		CompanyName:   fmt.Sprintf("Funeral Parlour %d", suffix),
		ContactPerson: "Thandi Nkosi",
		Phone:         "+27315086700",
		CreatedAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(account)
	}

	if err := tf.Accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreateTestAdmin stores an approved admin
func (tf *TestFixtures) CreateTestAdmin(ctx context.Context, opts ...AccountOption) (*models.Account, error) {
	opts = append([]AccountOption{WithRole(models.RoleAdmin), WithStatus(models.StatusApproved)}, opts...)
	return tf.CreateTestAccount(ctx, opts...)
}
