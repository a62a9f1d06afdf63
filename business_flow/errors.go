// Package businessflow contains the core business logic and use cases for storefront authentication workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Input errors
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrCredentialsRequired   = errors.New("email and password required")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrWeakPassword          = errors.New("password is too short")
	ErrInvalidStatus         = errors.New("valid status required (approved, declined, pending)")
	ErrInvalidRole           = errors.New("valid role required (customer, admin)")
	ErrNoCustomersSelected   = errors.New("no customers selected")
	ErrTooManyCustomers      = errors.New("too many customers selected")
	ErrInvalidCustomerID     = errors.New("invalid customer ID")
	ErrInvalidDateRange      = errors.New("invalid date range")
	ErrInvalidAuditAction    = errors.New("unknown audit action")

	// Account errors
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrEmailAlreadyExists     = errors.New("email already exists")
	ErrCustomerNotFound       = errors.New("customer not found")
	ErrAccountNotFound        = errors.New("account not found")

	// Authentication and authorization errors
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAdminAccessRequired = errors.New("admin access required")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrCaptchaRequired     = errors.New("captcha required")
	ErrInvalidCaptcha      = errors.New("captcha verification failed")

	// Admin safety rails
	ErrLastAdmin        = errors.New("cannot remove the last admin")
	ErrCannotModifySelf = errors.New("cannot perform this action on your own account")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsMissingRequiredFields(err error) bool {
	return errors.Is(err, ErrMissingRequiredFields)
}

func IsCredentialsRequired(err error) bool {
	return errors.Is(err, ErrCredentialsRequired)
}

func IsInvalidEmail(err error) bool {
	return errors.Is(err, ErrInvalidEmail)
}

func IsWeakPassword(err error) bool {
	return errors.Is(err, ErrWeakPassword)
}

func IsInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsNoCustomersSelected(err error) bool {
	return errors.Is(err, ErrNoCustomersSelected)
}

func IsTooManyCustomers(err error) bool {
	return errors.Is(err, ErrTooManyCustomers)
}

func IsInvalidCustomerID(err error) bool {
	return errors.Is(err, ErrInvalidCustomerID)
}

func IsInvalidDateRange(err error) bool {
	return errors.Is(err, ErrInvalidDateRange)
}

func IsInvalidAuditAction(err error) bool {
	return errors.Is(err, ErrInvalidAuditAction)
}

func IsEmailAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrEmailAlreadyRegistered)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAdminAccessRequired(err error) bool {
	return errors.Is(err, ErrAdminAccessRequired)
}

func IsInvalidResetToken(err error) bool {
	return errors.Is(err, ErrInvalidResetToken)
}

func IsCaptchaRequired(err error) bool {
	return errors.Is(err, ErrCaptchaRequired)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsLastAdmin(err error) bool {
	return errors.Is(err, ErrLastAdmin)
}

func IsCannotModifySelf(err error) bool {
	return errors.Is(err, ErrCannotModifySelf)
}
