package handlers

import (
	"fmt"
	"log"

	"github.com/amirphl/safs-storefront/app/dto"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Me(c fiber.Ctx) error
	Access(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	signupFlow        businessflow.SignupFlow
	loginFlow         businessflow.LoginFlow
	passwordMinLength int
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(signupFlow businessflow.SignupFlow, loginFlow businessflow.LoginFlow, passwordMinLength int) *AuthHandler {
	return &AuthHandler{
		baseHandler:       newBaseHandler(),
		signupFlow:        signupFlow,
		loginFlow:         loginFlow,
		passwordMinLength: passwordMinLength,
	}
}

// Register handles customer self-registration
// @Summary Customer Registration
// @Description Register a customer account. New accounts are pending until an admin approves them.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.RegisterResponse "Account created and pending approval"
// @Failure 400 {object} dto.ErrorResponse "Missing fields or email already registered"
// @Failure 500 {object} dto.ErrorResponse "Registration failed"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/register")
	defer cancel()

	result, err := h.signupFlow.Register(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsMissingRequiredFields(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields", "MISSING_REQUIRED_FIELDS", nil)
		case businessflow.IsInvalidEmail(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email format", "INVALID_EMAIL", nil)
		case businessflow.IsWeakPassword(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", h.passwordMinLength), "WEAK_PASSWORD", nil)
		case businessflow.IsEmailAlreadyRegistered(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Email already registered", "EMAIL_ALREADY_REGISTERED", nil)
		}

		log.Println("Registration failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles account sign-in
// @Summary Login
// @Description Authenticate with email and password and receive a 7 day session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Email and password required"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Login failed"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Email and password required"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.loginFailure(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *baseHandler) loginFailure(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsCredentialsRequired(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Email and password required", "CREDENTIALS_REQUIRED", nil)
	case businessflow.IsInvalidCredentials(err):
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
	}

	log.Println("Login failed", err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
}

// Logout records the end of a session
// @Summary Logout
// @Description Record the sign-out. The client discards its token.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MessageResponse "Logged out"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	result, err := h.loginFlow.Logout(ctx, actor, clientMetadata(c))
	if err != nil {
		log.Println("Logout failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Me returns the caller's stored account
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CurrentAccountResponse
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/me")
	defer cancel()

	result, err := h.loginFlow.CurrentAccount(ctx, actor)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		log.Println("Fetching current account failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load account", "ACCOUNT_LOOKUP_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// Access reports what an approved caller may do
// @Summary Storefront access
// @Description Only approved customers and admins reach this endpoint
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AccessResponse
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 403 {object} dto.ErrorResponse "Account approval required"
// @Router /api/v1/account/access [get]
func (h *AuthHandler) Access(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.unauthenticated(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/account/access")
	defer cancel()

	result, err := h.loginFlow.Access(ctx, actor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve access", "ACCESS_LOOKUP_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// ResetPassword redeems an admin issued reset token
// @Summary Reset password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.MessageResponse "Password updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid or expired reset token"
// @Failure 500 {object} dto.ErrorResponse "Password reset failed"
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.bodyError(c, err)
	}
	if msg, details, failed := h.validationFailure(&req, "Missing required fields"); failed {
		return h.ErrorResponse(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR", details)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/reset-password")
	defer cancel()

	result, err := h.loginFlow.ResetPassword(ctx, &req, clientMetadata(c))
	if err != nil {
		switch {
		case businessflow.IsMissingRequiredFields(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing required fields", "MISSING_REQUIRED_FIELDS", nil)
		case businessflow.IsWeakPassword(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", h.passwordMinLength), "WEAK_PASSWORD", nil)
		case businessflow.IsInvalidResetToken(err):
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid or expired reset token", "INVALID_RESET_TOKEN", nil)
		}

		log.Println("Password reset failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Password reset failed", "PASSWORD_RESET_FAILED", nil)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
