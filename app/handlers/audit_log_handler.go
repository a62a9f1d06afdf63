package handlers

import (
	"log"

	"github.com/amirphl/safs-storefront/app/dto"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

type AuditLogHandlerInterface interface {
	ListAuditLogs(c fiber.Ctx) error
}

type AuditLogHandler struct {
	baseHandler
	flow businessflow.AuditLogFlow
}

func NewAuditLogHandler(flow businessflow.AuditLogFlow) AuditLogHandlerInterface {
	return &AuditLogHandler{baseHandler: newBaseHandler(), flow: flow}
}

// ListAuditLogs pages through authentication events
// @Summary List audit logs
// @Description Newest first. Summary counts cover the whole filter, not only the current page.
// @Tags Admin Audit Logs
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 30, max 200)"
// @Param action query string false "login, logout, login_failed or password_reset"
// @Param email query string false "Email contains"
// @Param role query string false "customer or admin"
// @Param from query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "End date (YYYY-MM-DD or RFC3339), inclusive"
// @Success 200 {object} dto.ListAuditLogsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/admin/auditlogs [get]
func (h *AuditLogHandler) ListAuditLogs(c fiber.Ctx) error {
	var req dto.ListAuditLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/auditlogs")
	defer cancel()

	res, err := h.flow.ListAuditLogs(ctx, &req)
	if err != nil {
		switch {
		case businessflow.IsInvalidDateRange(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", nil)
		case businessflow.IsInvalidAuditAction(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid action filter", "INVALID_ACTION", nil)
		}
		log.Println("List audit logs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch audit logs", "LIST_AUDIT_LOGS_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
