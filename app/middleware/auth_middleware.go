// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/models"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	localAccountID   = "account_id"
	localTokenClaims = "token_claims"
)

// Messages returned by the session gates
const (
	MsgAuthenticationRequired  = "Authentication required"
	MsgInvalidOrExpiredToken   = "Invalid or expired token"
	MsgAdminAccessRequired     = "Admin access required"
	MsgAccountApprovalRequired = "Account approval required"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func deny(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// bearerToken returns the text after the "Bearer " prefix. present is false when the header is
// absent or uses another scheme. A bare "Bearer" counts as present with a blank token, since
// trailing whitespace does not survive header parsing.
func bearerToken(c fiber.Ctx) (token string, present bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "Bearer" {
		return "", true
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
}

// Authenticate resolves the session token and stores its claims for downstream handlers
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, present := bearerToken(c)
		if !present {
			recordGate(GateAuthenticate, OutcomeMissingToken)
			return deny(c, fiber.StatusUnauthorized, "AUTHENTICATION_REQUIRED", MsgAuthenticationRequired)
		}
		if token == "" {
			recordGate(GateAuthenticate, OutcomeInvalidToken)
			return deny(c, fiber.StatusUnauthorized, "TOKEN_INVALID", MsgInvalidOrExpiredToken)
		}

		// Expired and malformed tokens are indistinguishable to the caller
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			recordGate(GateAuthenticate, OutcomeInvalidToken)
			return deny(c, fiber.StatusUnauthorized, "TOKEN_INVALID", MsgInvalidOrExpiredToken)
		}
		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			recordGate(GateAuthenticate, OutcomeInvalidToken)
			return deny(c, fiber.StatusUnauthorized, "TOKEN_INVALID", MsgInvalidOrExpiredToken)
		}

		c.Locals(localAccountID, accountID)
		c.Locals(localTokenClaims, claims)

		recordGate(GateAuthenticate, OutcomeAllowed)
		return c.Next()
	}
}

// RequireAdmin must follow Authenticate. Unauthenticated requests still get 401.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := GetTokenClaimsFromContext(c)
		if !ok {
			recordGate(GateAdmin, OutcomeMissingToken)
			return deny(c, fiber.StatusUnauthorized, "AUTHENTICATION_REQUIRED", MsgAuthenticationRequired)
		}
		if claims.Role != models.RoleAdmin {
			recordGate(GateAdmin, OutcomeForbidden)
			return deny(c, fiber.StatusForbidden, "ADMIN_ACCESS_REQUIRED", MsgAdminAccessRequired)
		}
		recordGate(GateAdmin, OutcomeAllowed)
		return c.Next()
	}
}

// RequireApproved must follow Authenticate. Admins pass regardless of their stored status.
func (m *AuthMiddleware) RequireApproved() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := GetTokenClaimsFromContext(c)
		if !ok {
			recordGate(GateApproved, OutcomeMissingToken)
			return deny(c, fiber.StatusUnauthorized, "AUTHENTICATION_REQUIRED", MsgAuthenticationRequired)
		}
		if !models.IsEffectivelyApproved(claims.Role, claims.Status) {
			recordGate(GateApproved, OutcomeForbidden)
			return deny(c, fiber.StatusForbidden, "ACCOUNT_APPROVAL_REQUIRED", MsgAccountApprovalRequired)
		}
		recordGate(GateApproved, OutcomeAllowed)
		return c.Next()
	}
}

// GetAccountIDFromContext extracts the authenticated account ID from the request context
func GetAccountIDFromContext(c fiber.Ctx) (uuid.UUID, bool) {
	accountID, ok := c.Locals(localAccountID).(uuid.UUID)
	return accountID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.AccountClaims, bool) {
	claims, ok := c.Locals(localTokenClaims).(*services.AccountClaims)
	return claims, ok && claims != nil
}
