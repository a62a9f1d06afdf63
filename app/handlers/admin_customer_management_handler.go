package handlers

import (
	"fmt"
	"log"

	"github.com/amirphl/safs-storefront/app/dto"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminCustomerManagementHandlerInterface interface {
	ListCustomers(c fiber.Ctx) error
	ExportCustomers(c fiber.Ctx) error
	CreateCustomer(c fiber.Ctx) error
	UpdateCustomerStatus(c fiber.Ctx) error
	UpdateCustomer(c fiber.Ctx) error
	UpdateCustomerRole(c fiber.Ctx) error
	DeleteCustomer(c fiber.Ctx) error
	BulkUpdateStatus(c fiber.Ctx) error
	BulkDelete(c fiber.Ctx) error
	IssuePasswordReset(c fiber.Ctx) error
}

type AdminCustomerManagementHandler struct {
	baseHandler
	flow businessflow.AdminCustomerManagementFlow
}

func NewAdminCustomerManagementHandler(flow businessflow.AdminCustomerManagementFlow) AdminCustomerManagementHandlerInterface {
	return &AdminCustomerManagementHandler{baseHandler: newBaseHandler(), flow: flow}
}

// customerFailure maps customer management errors. fallback is the message for unexpected failures.
func (h *AdminCustomerManagementHandler) customerFailure(c fiber.Ctx, err error, fallback, fallbackCode string) error {
	switch {
	case businessflow.IsMissingRequiredFields(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields", "MISSING_REQUIRED_FIELDS", nil)
	case businessflow.IsInvalidStatus(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Valid status required (approved, declined, pending)", "INVALID_STATUS", nil)
	case businessflow.IsInvalidRole(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Valid role required (customer, admin)", "INVALID_ROLE", nil)
	case businessflow.IsEmailAlreadyExists(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Email already exists", "EMAIL_ALREADY_EXISTS", nil)
	case businessflow.IsCustomerNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
	case businessflow.IsLastAdmin(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "At least one admin account must remain", "LAST_ADMIN", nil)
	case businessflow.IsCannotModifySelf(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "You cannot perform this action on your own account", "CANNOT_MODIFY_SELF", nil)
	case businessflow.IsNoCustomersSelected(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "No customers selected", "NO_CUSTOMERS_SELECTED", nil)
	case businessflow.IsTooManyCustomers(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "TOO_MANY_CUSTOMERS", nil)
	case businessflow.IsInvalidCustomerID(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid customer ID", "INVALID_CUSTOMER_ID", nil)
	}

	log.Println(fallback, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, fallbackCode, nil)
}

func (h *AdminCustomerManagementHandler) listRequest(c fiber.Ctx) (*dto.ListCustomersRequest, error) {
	var req dto.ListCustomersRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}
	return &req, nil
}

// ListCustomers lists accounts for the admin dashboard
// @Summary List customers
// @Description Newest first. Without a role filter only customers are returned.
// @Tags Admin Customer Management
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, declined or all"
// @Param role query string false "customer, admin or all"
// @Param search query string false "Case-insensitive match on email, company and contact"
// @Success 200 {object} dto.ListCustomersResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/admin/customers [get]
func (h *AdminCustomerManagementHandler) ListCustomers(c fiber.Ctx) error {
	req, err := h.listRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers")
	defer cancel()

	res, err := h.flow.ListCustomers(ctx, req)
	if err != nil {
		return h.customerFailure(c, err, "Failed to fetch customers", "LIST_CUSTOMERS_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// ExportCustomers downloads the filtered listing as an Excel workbook
// @Summary Export customers
// @Tags Admin Customer Management
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "pending, approved, declined or all"
// @Param role query string false "customer, admin or all"
// @Param search query string false "Search text"
// @Success 200 {file} file
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/admin/customers/export [get]
func (h *AdminCustomerManagementHandler) ExportCustomers(c fiber.Ctx) error {
	req, err := h.listRequest(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/export")
	defer cancel()

	export, err := h.flow.ExportCustomers(ctx, req)
	if err != nil {
		return h.customerFailure(c, err, "Failed to export customers", "EXPORT_CUSTOMERS_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	return c.Status(fiber.StatusOK).Send(export.Content)
}

// CreateCustomer provisions an account on behalf of a customer
// @Summary Add customer
// @Description The account has no password until a reset token is redeemed. Status defaults to approved.
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCustomerRequest true "Customer profile"
// @Success 201 {object} dto.CreateCustomerResponse
// @Failure 400 {object} dto.ErrorResponse "Missing required fields or email already exists"
// @Failure 500 {object} dto.ErrorResponse "Operation failed"
// @Router /api/v1/admin/customers [post]
func (h *AdminCustomerManagementHandler) CreateCustomer(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.CreateCustomerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers")
	defer cancel()

	res, err := h.flow.CreateCustomer(ctx, actor, &req)
	if err != nil {
		return h.customerFailure(c, err, "Operation failed", "CREATE_CUSTOMER_FAILED")
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdateCustomerStatus approves, declines or resets a customer to pending
// @Summary Moderate customer
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param request body dto.UpdateCustomerStatusRequest true "New status and optional reason"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse "Valid status required (approved, declined, pending)"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Update failed"
// @Router /api/v1/admin/customers/{id} [patch]
func (h *AdminCustomerManagementHandler) UpdateCustomerStatus(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	id := c.Params("id")
	if id == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Customer ID required", "CUSTOMER_ID_REQUIRED", nil)
	}

	var req dto.UpdateCustomerStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/:id")
	defer cancel()

	res, err := h.flow.UpdateCustomerStatus(ctx, actor, id, &req)
	if err != nil {
		return h.customerFailure(c, err, "Update failed", "UPDATE_CUSTOMER_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// UpdateCustomer edits an account profile
// @Summary Edit customer
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param request body dto.UpdateCustomerRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.CustomerDTO}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Update failed"
// @Router /api/v1/admin/customers/{id} [put]
func (h *AdminCustomerManagementHandler) UpdateCustomer(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.UpdateCustomerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/:id")
	defer cancel()

	res, err := h.flow.UpdateCustomer(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.customerFailure(c, err, "Update failed", "UPDATE_CUSTOMER_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// UpdateCustomerRole promotes or demotes an account
// @Summary Change role
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body dto.UpdateCustomerRoleRequest true "New role"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "Last admin"
// @Router /api/v1/admin/customers/{id}/role [patch]
func (h *AdminCustomerManagementHandler) UpdateCustomerRole(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.UpdateCustomerRoleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/:id/role")
	defer cancel()

	res, err := h.flow.UpdateCustomerRole(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.customerFailure(c, err, "Update failed", "UPDATE_ROLE_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// DeleteCustomer removes an account
// @Summary Delete customer
// @Tags Admin Customer Management
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse "Own account"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "Last admin"
// @Router /api/v1/admin/customers/{id} [delete]
func (h *AdminCustomerManagementHandler) DeleteCustomer(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/:id")
	defer cancel()

	res, err := h.flow.DeleteCustomer(ctx, actor, c.Params("id"))
	if err != nil {
		return h.customerFailure(c, err, "Operation failed", "DELETE_CUSTOMER_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// BulkUpdateStatus moderates several customers at once
// @Summary Bulk moderate customers
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkUpdateStatusRequest true "Selection and status"
// @Success 200 {object} dto.BulkUpdateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/admin/customers/bulk-update [post]
func (h *AdminCustomerManagementHandler) BulkUpdateStatus(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.BulkUpdateStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/bulk-update")
	defer cancel()

	res, err := h.flow.BulkUpdateStatus(ctx, actor, &req)
	if err != nil {
		return h.customerFailure(c, err, "Update failed", "BULK_UPDATE_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// BulkDelete removes several customers at once
// @Summary Bulk delete customers
// @Tags Admin Customer Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkDeleteRequest true "Selection"
// @Success 200 {object} dto.BulkDeleteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/admin/customers/bulk-delete [post]
func (h *AdminCustomerManagementHandler) BulkDelete(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	var req dto.BulkDeleteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/bulk-delete")
	defer cancel()

	res, err := h.flow.BulkDelete(ctx, actor, &req)
	if err != nil {
		return h.customerFailure(c, err, "Operation failed", "BULK_DELETE_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// IssuePasswordReset creates a reset token for the account holder
// @Summary Issue password reset token
// @Tags Admin Customer Management
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} dto.PasswordResetTokenResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /api/v1/admin/customers/{id}/password-reset [post]
func (h *AdminCustomerManagementHandler) IssuePasswordReset(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/customers/:id/password-reset")
	defer cancel()

	res, err := h.flow.IssuePasswordReset(ctx, actor, c.Params("id"))
	if err != nil {
		return h.customerFailure(c, err, "Operation failed", "PASSWORD_RESET_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
