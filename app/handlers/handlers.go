// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/middleware"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

const requestTimeout = 30 * time.Second

// baseHandler carries the response and validation helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    errorCode,
		Details: details,
	})
}

// validationFailure checks req against its validate tags. The message is requiredMessage
// when any required field is missing, otherwise the first field error.
func (h *baseHandler) validationFailure(req any, requiredMessage string) (string, []string, bool) {
	err := h.validator.Struct(req)
	if err == nil {
		return "", nil, false
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Validation failed", nil, true
	}

	message := ""
	details := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, getValidationErrorMessage(fe))
		if fe.Tag() == "required" {
			message = requiredMessage
		}
	}
	if message == "" {
		message = details[0]
	}
	return message, details, true
}

// bodyError answers a request whose body could not be decoded
func (h *baseHandler) bodyError(c fiber.Ctx, err error) error {
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
}

// createRequestContext creates a context with a timeout and request-scoped values
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, businessflow.EndpointKey, endpoint)
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	return metadata
}

// actorFromContext builds the caller from the claims stored by the auth middleware
func actorFromContext(c fiber.Ctx) (businessflow.Actor, bool) {
	claims, ok := middleware.GetTokenClaimsFromContext(c)
	if !ok {
		return businessflow.Actor{}, false
	}
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return businessflow.Actor{}, false
	}
	return businessflow.Actor{
		AccountID: accountID,
		Email:     claims.Email,
		Role:      claims.Role,
		Status:    claims.Status,
	}, true
}

func (h *baseHandler) unauthenticated(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, middleware.MsgAuthenticationRequired, "AUTHENTICATION_REQUIRED", nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", err.Field(), err.Param())
		}
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", err.Field(), err.Param())
		}
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid ID"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
