package businessflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/models"
	testingutil "github.com/amirphl/safs-storefront/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesAdminWhenNoneExists", func(t *testing.T) {
		env := newFlowEnv(t)

		outcome, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, businessflow.BootstrapCreated, outcome)

		admin, err := env.accounts.ByEmail(ctx, "admin@safuneralsupplies.co.za")
		require.NoError(t, err)
		require.NotNil(t, admin)
		assert.Equal(t, "admin@safuneralsupplies.co.za", admin.Email)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.Equal(t, models.StatusApproved, admin.Status)
		assert.Equal(t, "SA Funeral Supplies", admin.CompanyName)
		assert.Equal(t, "Administrator", admin.ContactPerson)
		assert.Equal(t, "+27 31 508 6700", admin.Phone)
		assert.True(t, env.hasher.Verify("Admin123!", admin.PasswordHash))
	})

	t.Run("NoOpWhenAdminExists", func(t *testing.T) {
		env := newFlowEnv(t)
		existing, err := env.fixtures.CreateTestAdmin(ctx, testingutil.WithEmail("owner@example.co.za"))
		require.NoError(t, err)

		outcome, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, businessflow.BootstrapSkipped, outcome)

		all := env.accounts.All()
		require.Len(t, all, 1)
		assert.Equal(t, existing.ID, all[0].ID)
	})

	t.Run("UpgradesExistingAccountInPlace", func(t *testing.T) {
		env := newFlowEnv(t)
		customer, err := env.fixtures.CreateTestAccount(ctx,
			testingutil.WithEmail("admin@safuneralsupplies.co.za"),
			testingutil.WithCompany("Kept Company"),
			testingutil.WithPassword("old-password"),
		)
		require.NoError(t, err)

		outcome, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, businessflow.BootstrapUpgraded, outcome)

		all := env.accounts.All()
		require.Len(t, all, 1)
		upgraded := all[0]
		assert.Equal(t, customer.ID, upgraded.ID)
		assert.Equal(t, models.RoleAdmin, upgraded.Role)
		assert.Equal(t, models.StatusApproved, upgraded.Status)
		assert.Equal(t, "Kept Company", upgraded.CompanyName)
		assert.NotNil(t, upgraded.UpdatedAt)
		assert.True(t, env.hasher.Verify("Admin123!", upgraded.PasswordHash))
		assert.False(t, env.hasher.Verify("old-password", upgraded.PasswordHash))
	})

	t.Run("SecondRunChangesNothing", func(t *testing.T) {
		env := newFlowEnv(t)

		_, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.NoError(t, err)
		before := env.accounts.All()

		outcome, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, businessflow.BootstrapSkipped, outcome)
		assert.Equal(t, before, env.accounts.All())
	})

	t.Run("ConcurrentRunsCreateOneAdmin", func(t *testing.T) {
		env := newFlowEnv(t)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.bootstrap.EnsureDefaultAdmin(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		admins, err := env.accounts.CountAdmins(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), admins)
	})

	t.Run("StoreFailureIsReturned", func(t *testing.T) {
		env := newFlowEnv(t)
		env.accounts.FailWith = errors.New("connection refused")

		_, err := env.bootstrap.EnsureDefaultAdmin(ctx)
		require.Error(t, err)
		var be *businessflow.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "ADMIN_BOOTSTRAP_FAILED", be.Code)
	})
}
