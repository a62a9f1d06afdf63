package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	testingutil "github.com/amirphl/safs-storefront/testing"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	repo := repository.NewAccountRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(repo)
	ctx := testingutil.CreateTestContext()

	t.Run("SaveAndByID", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(ctx)
		require.NoError(t, err)

		found, err := repo.ByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, account.Email, found.Email)
		assert.Equal(t, models.StatusPending, found.Status)
		assert.Nil(t, found.LastLogin)
		assert.Nil(t, found.UpdatedAt)
	})

	t.Run("ByIDNotFound", func(t *testing.T) {
		found, err := repo.ByID(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ByEmailIsCaseInsensitive", func(t *testing.T) {
		_, err := fixtures.CreateTestAccount(ctx, testingutil.WithEmail("mixed@case.co.za"))
		require.NoError(t, err)

		found, err := repo.ByEmail(ctx, "  MIXED@Case.co.za")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "mixed@case.co.za", found.Email)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := fixtures.CreateTestAccount(ctx, testingutil.WithEmail("dup@example.co.za"))
		require.NoError(t, err)

		_, err = fixtures.CreateTestAccount(ctx, testingutil.WithEmail("dup@example.co.za"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
	})

	t.Run("CountAdmins", func(t *testing.T) {
		before, err := repo.CountAdmins(ctx)
		require.NoError(t, err)

		_, err = fixtures.CreateTestAdmin(ctx)
		require.NoError(t, err)

		after, err := repo.CountAdmins(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("UpdateLastLogin", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(ctx)
		require.NoError(t, err)

		at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
		require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, at))

		found, err := repo.ByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, found.LastLogin)
		assert.True(t, at.Equal(*found.LastLogin))
	})

	t.Run("UpdateFields", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(ctx)
		require.NoError(t, err)

		role := models.RoleCustomer
		n, err := repo.UpdateFields(ctx,
			models.AccountFilter{ID: &account.ID, Role: &role},
			models.AccountUpdate{Status: utils.ToPtr(models.StatusApproved), UpdatedAt: utils.UTCNowPtr()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		found, err := repo.ByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, found.Status)
		assert.NotNil(t, found.UpdatedAt)
	})

	t.Run("UpdateFieldsRejectsEmptyFilter", func(t *testing.T) {
		_, err := repo.UpdateFields(ctx, models.AccountFilter{}, models.AccountUpdate{Status: utils.ToPtr(models.StatusDeclined)})
		assert.ErrorIs(t, err, repository.ErrEmptyFilter)
	})

	t.Run("SearchAndDelete", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(ctx, testingutil.WithCompany("Umhlanga Memorial Services"))
		require.NoError(t, err)

		search := "memorial"
		found, err := repo.ByFilter(ctx, models.AccountFilter{Search: &search}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, account.ID, found[0].ID)

		n, err := repo.DeleteByFilter(ctx, models.AccountFilter{IDs: []uuid.UUID{account.ID}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("TransactionRollback", func(t *testing.T) {
		tx := repository.NewTransactor(testDB.DB)
		boom := errors.New("boom")

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			_, err := fixtures.CreateTestAccount(txCtx, testingutil.WithEmail("rolled.back@example.co.za"))
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := repo.ByEmail(ctx, "rolled.back@example.co.za")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestAuditLogRepository(t *testing.T) {
	testDB := testingutil.RequireTestDB(t)
	repo := repository.NewAuditLogRepository(testDB.DB)
	ctx := testingutil.CreateTestContext()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []*models.AuditLog{
		{Email: "a@b.com", Action: models.AuditActionLogin, Role: models.RoleCustomer, Success: true, Timestamp: base},
		{Email: "a@b.com", Action: models.AuditActionLogout, Role: models.RoleCustomer, Success: true, Timestamp: base.Add(time.Hour)},
		{Email: "ghost@b.com", Action: models.AuditActionLoginFailed, Success: false, Details: "Invalid credentials", Timestamp: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Save(ctx, e))
	}

	logs, err := repo.ByFilter(ctx, models.AuditLogFilter{}, "", 2, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionLoginFailed, logs[0].Action)

	email := "A@B"
	count, err := repo.Count(ctx, models.AuditLogFilter{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	counts, err := repo.CountByAction(ctx, models.AuditLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.AuditActionLoginFailed])
	assert.Equal(t, int64(1), counts[models.AuditActionLogin])
}
