package handlers

import (
	"errors"
	"log"

	"github.com/amirphl/safs-storefront/app/dto"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AdminHandlerInterface defines the contract for admin auth handlers
type AdminHandlerInterface interface {
	InitCaptcha(c fiber.Ctx) error
	Login(c fiber.Ctx) error
}

// AdminHandler implements AdminHandlerInterface
type AdminHandler struct {
	baseHandler
	flow businessflow.AdminAuthFlow
}

func NewAdminHandler(flow businessflow.AdminAuthFlow) AdminHandlerInterface {
	return &AdminHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// InitCaptcha starts the admin login by returning a rotate captcha challenge
// @Summary Admin captcha init
// @Description Initialize rotate captcha for admin login (returns base64 images and challenge ID)
// @Tags Admin Authentication
// @Produce json
// @Success 200 {object} dto.CaptchaChallengeResponse
// @Failure 503 {object} dto.ErrorResponse "Captcha not available"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/admin/auth/captcha [get]
func (h *AdminHandler) InitCaptcha(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/auth/captcha")
	defer cancel()

	res, err := h.flow.InitCaptcha(ctx)
	if err != nil {
		var be *businessflow.BusinessError
		if errors.As(err, &be) && be.Code == "CAPTCHA_NOT_AVAILABLE" {
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, be.Message, be.Code, nil)
		}
		log.Println("Admin captcha init failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to initialize captcha", "CAPTCHA_INIT_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// Login signs an admin in from the admin page
// @Summary Admin login
// @Description Verify the rotate captcha (when enabled) and admin credentials
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Credentials and captcha answer"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse "Missing fields or captcha failed"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Admin access required"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/admin/auth/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Email and password required"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/auth/login")
	defer cancel()

	res, err := h.flow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsCaptchaRequired(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha challenge missing", "CAPTCHA_REQUIRED", nil)
		case businessflow.IsInvalidCaptcha(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha validation failed", "CAPTCHA_INVALID", nil)
		case businessflow.IsAdminAccessRequired(err):
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin access required", "ADMIN_ACCESS_REQUIRED", nil)
		}
		return h.loginFailure(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
