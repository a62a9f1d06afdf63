package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/middleware"
	"github.com/amirphl/safs-storefront/app/services"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/models"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCustomerFlow answers every call with err, or with canned results when err is nil
type stubCustomerFlow struct {
	err        error
	lastActor  businessflow.Actor
	lastListed *dto.ListCustomersRequest
}

func (s *stubCustomerFlow) ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error) {
	s.lastListed = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ListCustomersResponse{Success: true, Customers: []dto.CustomerDTO{}}, nil
}

func (s *stubCustomerFlow) ExportCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.CustomerExport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CustomerExport{Filename: "customers_20250101.xlsx", Content: []byte("PK")}, nil
}

func (s *stubCustomerFlow) CreateCustomer(ctx context.Context, actor businessflow.Actor, req *dto.CreateCustomerRequest) (*dto.CreateCustomerResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CreateCustomerResponse{Success: true, Message: "Customer added successfully", CustomerID: uuid.NewString()}, nil
}

func (s *stubCustomerFlow) UpdateCustomerStatus(ctx context.Context, actor businessflow.Actor, customerID string, req *dto.UpdateCustomerStatusRequest) (*dto.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.MessageResponse{Success: true, Message: "Customer " + req.Status + " successfully"}, nil
}

func (s *stubCustomerFlow) UpdateCustomer(ctx context.Context, actor businessflow.Actor, customerID string, req *dto.UpdateCustomerRequest) (*dto.APIResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.APIResponse{Success: true}, nil
}

func (s *stubCustomerFlow) UpdateCustomerRole(ctx context.Context, actor businessflow.Actor, customerID string, req *dto.UpdateCustomerRoleRequest) (*dto.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.MessageResponse{Success: true}, nil
}

func (s *stubCustomerFlow) DeleteCustomer(ctx context.Context, actor businessflow.Actor, customerID string) (*dto.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.MessageResponse{Success: true}, nil
}

func (s *stubCustomerFlow) BulkUpdateStatus(ctx context.Context, actor businessflow.Actor, req *dto.BulkUpdateStatusRequest) (*dto.BulkUpdateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.BulkUpdateResponse{Success: true, UpdatedCount: int64(len(req.CustomerIDs))}, nil
}

func (s *stubCustomerFlow) BulkDelete(ctx context.Context, actor businessflow.Actor, req *dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.BulkDeleteResponse{Success: true, DeletedCount: int64(len(req.CustomerIDs))}, nil
}

func (s *stubCustomerFlow) IssuePasswordReset(ctx context.Context, actor businessflow.Actor, customerID string) (*dto.PasswordResetTokenResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.PasswordResetTokenResponse{Success: true, ResetToken: "reset"}, nil
}

type handlerEnv struct {
	app     *fiber.App
	token   string
	adminID uuid.UUID
}

func newCustomerHandlerEnv(t *testing.T, flow businessflow.AdminCustomerManagementFlow) *handlerEnv {
	t.Helper()

	tokens, err := services.NewTokenService("handler-secret", time.Hour, "safs-storefront")
	require.NoError(t, err)

	adminID := uuid.New()
	token, _, err := tokens.IssueAccessToken(services.TokenSubject{
		AccountID: adminID,
		Email:     "admin@safuneralsupplies.co.za",
		Role:      models.RoleAdmin,
		Status:    models.StatusApproved,
	})
	require.NoError(t, err)

	h := NewAdminCustomerManagementHandler(flow)
	auth := middleware.NewAuthMiddleware(tokens)

	app := fiber.New()
	admin := app.Group("/customers", auth.Authenticate(), auth.RequireAdmin())
	admin.Get("/", h.ListCustomers)
	admin.Post("/", h.CreateCustomer)
	admin.Get("/export", h.ExportCustomers)
	admin.Post("/bulk-update", h.BulkUpdateStatus)
	admin.Post("/bulk-delete", h.BulkDelete)
	admin.Patch("/:id", h.UpdateCustomerStatus)
	admin.Put("/:id", h.UpdateCustomer)
	admin.Delete("/:id", h.DeleteCustomer)
	admin.Patch("/:id/role", h.UpdateCustomerRole)
	admin.Post("/:id/password-reset", h.IssuePasswordReset)

	return &handlerEnv{app: app, token: token, adminID: adminID}
}

func (e *handlerEnv) send(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decodeError(t *testing.T, raw []byte) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestCustomerErrorMapping(t *testing.T) {
	id := uuid.NewString()
	status := dto.UpdateCustomerStatusRequest{Status: models.StatusApproved}

	cases := []struct {
		name        string
		err         error
		method      string
		path        string
		body        any
		wantStatus  int
		wantMessage string
	}{
		{"InvalidStatus", businessflow.ErrInvalidStatus, http.MethodPatch, "/customers/" + id, dto.UpdateCustomerStatusRequest{Status: "archived"}, http.StatusBadRequest, "Valid status required (approved, declined, pending)"},
		{"NotACustomer", businessflow.ErrCustomerNotFound, http.MethodPatch, "/customers/" + id, status, http.StatusNotFound, "Customer not found"},
		{"StatusStoreFailure", errUnexpected, http.MethodPatch, "/customers/" + id, status, http.StatusInternalServerError, "Update failed"},
		{"DuplicateEmail", businessflow.ErrEmailAlreadyExists, http.MethodPost, "/customers/", validCreate(), http.StatusBadRequest, "Email already exists"},
		{"CreateStoreFailure", errUnexpected, http.MethodPost, "/customers/", validCreate(), http.StatusInternalServerError, "Operation failed"},
		{"LastAdminRole", businessflow.ErrLastAdmin, http.MethodPatch, "/customers/" + id + "/role", dto.UpdateCustomerRoleRequest{Role: models.RoleCustomer}, http.StatusConflict, "At least one admin account must remain"},
		{"DeleteSelf", businessflow.ErrCannotModifySelf, http.MethodDelete, "/customers/" + id, nil, http.StatusBadRequest, "You cannot perform this action on your own account"},
		{"BulkNotFound", businessflow.ErrNoCustomersSelected, http.MethodPost, "/customers/bulk-delete", dto.BulkDeleteRequest{CustomerIDs: []string{id}}, http.StatusBadRequest, "No customers selected"},
		{"ResetUnknown", businessflow.ErrCustomerNotFound, http.MethodPost, "/customers/" + id + "/password-reset", nil, http.StatusNotFound, "Customer not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newCustomerHandlerEnv(t, &stubCustomerFlow{err: businessflow.NewBusinessError("TEST", "test", tc.err)})
			resp, raw := env.send(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			body := decodeError(t, raw)
			assert.False(t, body.Success)
			assert.Equal(t, tc.wantMessage, body.Error)
		})
	}
}

var errUnexpected = io.ErrUnexpectedEOF

func validCreate() dto.CreateCustomerRequest {
	return dto.CreateCustomerRequest{
		Email:         "orders@memorial.co.za",
		CompanyName:   "Pietermaritzburg Memorial",
		ContactPerson: "Sipho Dlamini",
		Phone:         "033 555 0199",
	}
}

func TestCreateCustomer(t *testing.T) {
	flow := &stubCustomerFlow{}
	env := newCustomerHandlerEnv(t, flow)

	t.Run("MissingFields", func(t *testing.T) {
		resp, raw := env.send(t, http.MethodPost, "/customers/", dto.CreateCustomerRequest{Email: "orders@memorial.co.za"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", decodeError(t, raw).Error)
	})

	t.Run("Created", func(t *testing.T) {
		resp, raw := env.send(t, http.MethodPost, "/customers/", validCreate())
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body dto.CreateCustomerResponse
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "Customer added successfully", body.Message)
		assert.Equal(t, env.adminID, flow.lastActor.AccountID)
		assert.True(t, flow.lastActor.IsAdmin())
	})
}

func TestListCustomersQuery(t *testing.T) {
	flow := &stubCustomerFlow{}
	env := newCustomerHandlerEnv(t, flow)

	resp, _ := env.send(t, http.MethodGet, "/customers/?status=pending&role=all&search=durban", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, flow.lastListed)
	assert.Equal(t, "pending", flow.lastListed.Status)
	assert.Equal(t, "all", flow.lastListed.Role)
	assert.Equal(t, "durban", flow.lastListed.Search)

	resp, raw := env.send(t, http.MethodGet, "/customers/?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, raw).Code)
}

func TestExportCustomersHeaders(t *testing.T) {
	env := newCustomerHandlerEnv(t, &stubCustomerFlow{})

	resp, raw := env.send(t, http.MethodGet, "/customers/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="customers_20250101.xlsx"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, []byte("PK"), raw)
}

func TestBulkUpdateValidation(t *testing.T) {
	env := newCustomerHandlerEnv(t, &stubCustomerFlow{})

	resp, _ := env.send(t, http.MethodPost, "/customers/bulk-update", dto.BulkUpdateStatusRequest{CustomerIDs: []string{"not-a-uuid"}, Status: models.StatusApproved})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := env.send(t, http.MethodPost, "/customers/bulk-update", dto.BulkUpdateStatusRequest{CustomerIDs: []string{uuid.NewString(), uuid.NewString()}, Status: models.StatusApproved})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.BulkUpdateResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.EqualValues(t, 2, body.UpdatedCount)
}
