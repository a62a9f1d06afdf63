package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/handlers"
	"github.com/amirphl/safs-storefront/app/middleware"
	"github.com/amirphl/safs-storefront/app/router"
	"github.com/amirphl/safs-storefront/app/services"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/config"
	"github.com/amirphl/safs-storefront/models"
	testingutil "github.com/amirphl/safs-storefront/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiEnv struct {
	app      *fiber.App
	accounts *testingutil.MemoryAccountRepository
	audit    *testingutil.MemoryAuditLogRepository
	cfg      *config.ProductionConfig
}

func testConfig() *config.ProductionConfig {
	cfg := config.Load()
	cfg.JWT.Secret = "router-test-secret"
	cfg.Security.AuthRateLimit = 1000
	cfg.Security.GlobalRateLimit = 1000
	cfg.Logging.EnableAccessLog = false
	cfg.Captcha.Enabled = false
	cfg.Server.EnableSwagger = true
	cfg.Admin = config.AdminConfig{
		Email:         "admin@safuneralsupplies.co.za",
		Password:      "Admin123!",
		CompanyName:   "SA Funeral Supplies",
		ContactPerson: "Admin User",
		Phone:         "+27 31 508 6700",
	}
	return cfg
}

func newAPIEnv(t *testing.T, mutate ...func(*config.ProductionConfig)) *apiEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	accounts := testingutil.NewMemoryAccountRepository()
	audit := testingutil.NewMemoryAuditLogRepository()
	tx := &testingutil.SerialTransactor{}
	hasher := services.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
	require.NoError(t, err)

	bootstrap := businessflow.NewAdminBootstrap(accounts, tx, hasher, services.NewLocalLocker(), cfg.Admin)
	minLen := cfg.Security.PasswordMinLength

	h := router.Handlers{
		Auth: handlers.NewAuthHandler(
			businessflow.NewSignupFlow(accounts, hasher, minLen),
			businessflow.NewLoginFlow(accounts, audit, hasher, tokens, bootstrap, minLen),
			minLen,
		),
		AdminAuth:          handlers.NewAdminHandler(businessflow.NewAdminAuthFlow(accounts, audit, hasher, tokens, bootstrap, nil, false)),
		CustomerManagement: handlers.NewAdminCustomerManagementHandler(businessflow.NewAdminCustomerManagementFlow(accounts, tx, tokens, services.NewLocalLocker())),
		AuditLogs:          handlers.NewAuditLogHandler(businessflow.NewAuditLogFlow(audit)),
	}

	r := router.NewFiberRouter(cfg, h, middleware.NewAuthMiddleware(tokens), io.Discard)
	r.SetupRoutes()

	return &apiEnv{app: r.GetApp(), accounts: accounts, audit: audit, cfg: cfg}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *apiEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestNotFound(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestSwaggerDocument(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2.0", body["swagger"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.do(t, http.MethodGet, "/api/v1/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "safs_http_requests_total")
}

func TestGateDecisionsExported(t *testing.T) {
	env := newAPIEnv(t)
	env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `safs_auth_gate_decisions_total{gate="authenticate",outcome="missing_token"}`)
}

func TestAuthRateLimit(t *testing.T) {
	env := newAPIEnv(t, func(cfg *config.ProductionConfig) { cfg.Security.AuthRateLimit = 2 })

	for i := 0; i < 2; i++ {
		status, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, status)
	}
	status, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
}

func TestRegistrationApprovalLifecycle(t *testing.T) {
	env := newAPIEnv(t)

	register := dto.RegisterRequest{
		Email:         "Orders@Parlour.co.za",
		Password:      "Coffin#2024",
		CompanyName:   "Durban Funeral Parlour",
		ContactPerson: "Thandi Nkosi",
		Phone:         "031 555 0100",
	}
	status, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", register)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Registration successful. Your account is pending approval.", body["message"])
	customerID, _ := body["userId"].(string)
	require.NotEmpty(t, customerID)

	// Pending customers can sign in but not reach approved-only features
	pendingToken := env.login(t, "orders@parlour.co.za", "Coffin#2024")
	status, body = env.do(t, http.MethodGet, "/api/v1/account/access", pendingToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, middleware.MsgAccountApprovalRequired, body["error"])

	status, body = env.do(t, http.MethodGet, "/api/v1/auth/me", pendingToken, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "orders@parlour.co.za", user["email"])
	assert.Equal(t, models.StatusPending, user["status"])

	// Customers cannot use the admin dashboard
	status, body = env.do(t, http.MethodGet, "/api/v1/admin/customers", pendingToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, middleware.MsgAdminAccessRequired, body["error"])

	// The first login created the default admin
	adminToken := env.login(t, env.cfg.Admin.Email, env.cfg.Admin.Password)

	status, body = env.do(t, http.MethodGet, "/api/v1/admin/customers?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = env.do(t, http.MethodPatch, "/api/v1/admin/customers/"+customerID, adminToken,
		dto.UpdateCustomerStatusRequest{Status: models.StatusApproved, Reason: "Verified trade references"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Customer approved successfully", body["message"])

	// The old token still carries the pending snapshot
	status, _ = env.do(t, http.MethodGet, "/api/v1/account/access", pendingToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	approvedToken := env.login(t, "orders@parlour.co.za", "Coffin#2024")
	status, body = env.do(t, http.MethodGet, "/api/v1/account/access", approvedToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["approved"])
	assert.Equal(t, true, body["canViewPricing"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/logout", approvedToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/admin/auditlogs", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 4, body["totalCount"])
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 3, summary[models.AuditActionLogin])
	assert.EqualValues(t, 1, summary[models.AuditActionLogout])
}

func TestLoginFailureBodiesMatch(t *testing.T) {
	env := newAPIEnv(t)
	fixtures := testingutil.NewTestFixtures(env.accounts)
	account, err := fixtures.CreateTestAccount(context.Background())
	require.NoError(t, err)

	wrongPassStatus, wrongPass := env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: account.Email, Password: "not-it"})
	unknownStatus, unknown := env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ghost@example.co.za", Password: "not-it"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassStatus)
	assert.Equal(t, wrongPassStatus, unknownStatus)
	assert.Equal(t, wrongPass, unknown)
	assert.Equal(t, "Invalid credentials", unknown["error"])
}

func TestAdminProvisionedAccountPasswordReset(t *testing.T) {
	env := newAPIEnv(t)
	adminToken := env.login(t, env.cfg.Admin.Email, env.cfg.Admin.Password)

	status, body := env.do(t, http.MethodPost, "/api/v1/admin/customers", adminToken, dto.CreateCustomerRequest{
		Email:         "manager@memorial.co.za",
		CompanyName:   "Pietermaritzburg Memorial",
		ContactPerson: "Sipho Dlamini",
		Phone:         "033 555 0199",
	})
	require.Equal(t, http.StatusCreated, status, body)
	customerID := body["customerId"].(string)

	status, body = env.do(t, http.MethodPost, "/api/v1/admin/customers/"+customerID+"/password-reset", adminToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	resetToken := body["resetToken"].(string)

	reset := dto.ResetPasswordRequest{Token: resetToken, Password: "Lilies#2025"}
	status, body = env.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", reset)
	require.Equal(t, http.StatusOK, status, body)

	// Single use
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, status)

	token := env.login(t, "manager@memorial.co.za", "Lilies#2025")
	status, _ = env.do(t, http.MethodGet, "/api/v1/account/access", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminLoginRejectsCustomers(t *testing.T) {
	env := newAPIEnv(t)
	fixtures := testingutil.NewTestFixtures(env.accounts)
	account, err := fixtures.CreateTestAccount(context.Background(), testingutil.WithStatus(models.StatusApproved))
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/api/v1/admin/auth/login", "", dto.AdminLoginRequest{
		Email:    account.Email,
		Password: testingutil.DefaultTestPassword,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", body["error"])
	assert.Nil(t, body["token"])
}

func TestMultibytePasswordOverBcryptLimit(t *testing.T) {
	env := newAPIEnv(t)
	password := strings.Repeat("é", 40)

	status, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email:         "accents@parlour.co.za",
		Password:      password,
		CompanyName:   "Ladysmith Funeral Home",
		ContactPerson: "Renée du Plessis",
		Phone:         "036 555 0142",
	})
	require.Equal(t, http.StatusCreated, status, body)

	env.login(t, "accents@parlour.co.za", password)
}

func TestBulkOperationsReportZeroCounts(t *testing.T) {
	env := newAPIEnv(t)
	adminToken := env.login(t, env.cfg.Admin.Email, env.cfg.Admin.Password)
	unknown := []string{uuid.NewString()}

	status, body := env.do(t, http.MethodPost, "/api/v1/admin/customers/bulk-update", adminToken,
		dto.BulkUpdateStatusRequest{CustomerIDs: unknown, Status: models.StatusApproved})
	require.Equal(t, http.StatusOK, status, body)
	require.Contains(t, body, "updatedCount")
	assert.EqualValues(t, 0, body["updatedCount"])
	assert.NotContains(t, body, "deletedCount")

	status, body = env.do(t, http.MethodPost, "/api/v1/admin/customers/bulk-delete", adminToken,
		dto.BulkDeleteRequest{CustomerIDs: unknown})
	require.Equal(t, http.StatusOK, status, body)
	require.Contains(t, body, "deletedCount")
	assert.EqualValues(t, 0, body["deletedCount"])
	assert.NotContains(t, body, "updatedCount")
}
