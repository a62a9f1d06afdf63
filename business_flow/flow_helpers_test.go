package businessflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/app/services"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/config"
	testingutil "github.com/amirphl/safs-storefront/testing"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-for-flows"

type flowEnv struct {
	accounts  *testingutil.MemoryAccountRepository
	audit     *testingutil.MemoryAuditLogRepository
	tx        *testingutil.SerialTransactor
	locker    services.Locker
	hasher    services.PasswordHasher
	tokens    services.TokenService
	bootstrap businessflow.AdminBootstrap
	fixtures  *testingutil.TestFixtures
	admin     config.AdminConfig
}

func testAdminConfig() config.AdminConfig {
	return config.AdminConfig{
		Email:         "Admin@SAFuneralSupplies.co.za",
		Password:      "Admin123!",
		CompanyName:   "SA Funeral Supplies",
		ContactPerson: "Administrator",
		Phone:         "+27 31 508 6700",
	}
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()

	accounts := testingutil.NewMemoryAccountRepository()
	tx := &testingutil.SerialTransactor{}
	hasher := services.NewPasswordHasher(bcrypt.MinCost)
	locker := services.NewLocalLocker()

	tokens, err := services.NewTokenService(testJWTSecret, 7*24*time.Hour, "safs-storefront")
	require.NoError(t, err)

	admin := testAdminConfig()
	return &flowEnv{
		accounts:  accounts,
		audit:     testingutil.NewMemoryAuditLogRepository(),
		tx:        tx,
		locker:    locker,
		hasher:    hasher,
		tokens:    tokens,
		bootstrap: businessflow.NewAdminBootstrap(accounts, tx, hasher, locker, admin),
		fixtures:  testingutil.NewTestFixtures(accounts),
		admin:     admin,
	}
}

func (e *flowEnv) loginFlow() businessflow.LoginFlow {
	return businessflow.NewLoginFlow(e.accounts, e.audit, e.hasher, e.tokens, e.bootstrap, 6)
}

func (e *flowEnv) adminFlow() businessflow.AdminCustomerManagementFlow {
	return businessflow.NewAdminCustomerManagementFlow(e.accounts, e.tx, e.tokens, e.locker)
}

// countingBootstrap records calls and returns a fixed error
type countingBootstrap struct {
	calls atomic.Int32
	err   error
}

func (b *countingBootstrap) EnsureDefaultAdmin(ctx context.Context) (string, error) {
	b.calls.Add(1)
	if b.err != nil {
		return "", b.err
	}
	return businessflow.BootstrapSkipped, nil
}

var errBootstrapUnavailable = errors.New("database unavailable")

func metadata() *businessflow.ClientMetadata {
	m := businessflow.NewClientMetadata("196.21.4.10", "flow-test")
	m.SetRequestID("req-1")
	return m
}
