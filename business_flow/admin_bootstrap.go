package businessflow

import (
	"context"
	"errors"
	"log"

	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/config"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
)

// adminRosterLockKey guards every change to the set of admin accounts
const adminRosterLockKey = "admin-roster"

// Outcomes reported by EnsureDefaultAdmin
const (
	BootstrapSkipped  = "skipped"
	BootstrapUpgraded = "upgraded"
	BootstrapCreated  = "created"
)

// AdminBootstrap guarantees that at least one admin account exists
type AdminBootstrap interface {
	EnsureDefaultAdmin(ctx context.Context) (string, error)
}

type AdminBootstrapImpl struct {
	accountRepo repository.AccountRepository
	transactor  repository.Transactor
	hasher      services.PasswordHasher
	locker      services.Locker
	admin       config.AdminConfig
}

func NewAdminBootstrap(
	accountRepo repository.AccountRepository,
	transactor repository.Transactor,
	hasher services.PasswordHasher,
	locker services.Locker,
	admin config.AdminConfig,
) AdminBootstrap {
	if locker == nil {
		locker = services.NewLocalLocker()
	}
	return &AdminBootstrapImpl{
		accountRepo: accountRepo,
		transactor:  transactor,
		hasher:      hasher,
		locker:      locker,
		admin:       admin,
	}
}

// EnsureDefaultAdmin is a no-op while any admin exists. Otherwise the account
// holding the configured email is promoted in place, or a new admin is created.
func (b *AdminBootstrapImpl) EnsureDefaultAdmin(ctx context.Context) (string, error) {
	admins, err := b.accountRepo.CountAdmins(ctx)
	if err != nil {
		return "", NewBusinessError("ADMIN_BOOTSTRAP_FAILED", "Failed to count admins", err)
	}
	if admins > 0 {
		return BootstrapSkipped, nil
	}

	unlock, err := b.locker.Lock(ctx, adminRosterLockKey)
	if err != nil {
		return "", NewBusinessError("ADMIN_BOOTSTRAP_FAILED", "Failed to acquire bootstrap lock", err)
	}
	defer unlock()

	outcome := BootstrapSkipped
	err = b.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		// Another instance may have finished while we waited for the lock
		admins, err := b.accountRepo.CountAdmins(txCtx)
		if err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}

		hash, err := b.hasher.Hash(b.admin.Password)
		if err != nil {
			return err
		}

		email := utils.NormalizeEmail(b.admin.Email)
		existing, err := b.accountRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			update := models.AccountUpdate{
				PasswordHash: &hash,
				Role:         utils.ToPtr(models.RoleAdmin),
				Status:       utils.ToPtr(models.StatusApproved),
				UpdatedAt:    utils.UTCNowPtr(),
			}
			if utils.IsBlank(existing.CompanyName) {
				update.CompanyName = utils.ToPtr(b.admin.CompanyName)
			}
			if utils.IsBlank(existing.ContactPerson) {
				update.ContactPerson = utils.ToPtr(b.admin.ContactPerson)
			}
			if utils.IsBlank(existing.Phone) {
				update.Phone = utils.ToPtr(b.admin.Phone)
			}
			if _, err := b.accountRepo.UpdateFields(txCtx, models.AccountFilter{ID: &existing.ID}, update); err != nil {
				return err
			}
			outcome = BootstrapUpgraded
			return nil
		}

		admin := &models.Account{
			Email:         email,
			PasswordHash:  hash,
			Role:          models.RoleAdmin,
			Status:        models.StatusApproved,
			CompanyName:   b.admin.CompanyName,
			ContactPerson: b.admin.ContactPerson,
			Phone:         b.admin.Phone,
			CreatedAt:     utils.UTCNow(),
		}
		if err := b.accountRepo.Save(txCtx, admin); err != nil {
			return err
		}
		outcome = BootstrapCreated
		return nil
	})
	if err != nil {
		// A concurrent insert of the same email means the admin now exists
		if errors.Is(err, repository.ErrDuplicateEmail) {
			adminBootstrapTotal.WithLabelValues(BootstrapSkipped).Inc()
			return BootstrapSkipped, nil
		}
		adminBootstrapTotal.WithLabelValues("failed").Inc()
		return "", NewBusinessError("ADMIN_BOOTSTRAP_FAILED", "Failed to ensure default admin", err)
	}

	adminBootstrapTotal.WithLabelValues(outcome).Inc()
	if outcome != BootstrapSkipped {
		log.Printf("admin bootstrap: %s default admin %s", outcome, utils.NormalizeEmail(b.admin.Email))
	}
	return outcome, nil
}
