package businessflow

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
)

const registrationSuccessMessage = "Registration successful. Your account is pending approval."

// SignupFlow handles customer self-registration
type SignupFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	accountRepo       repository.AccountRepository
	hasher            services.PasswordHasher
	passwordMinLength int
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(accountRepo repository.AccountRepository, hasher services.PasswordHasher, passwordMinLength int) SignupFlow {
	return &SignupFlowImpl{
		accountRepo:       accountRepo,
		hasher:            hasher,
		passwordMinLength: passwordMinLength,
	}
}

// Register creates a pending customer account
func (sf *SignupFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if err := sf.validateRegisterRequest(req); err != nil {
		registrationsTotal.WithLabelValues("invalid").Inc()
		return nil, NewBusinessError("REGISTRATION_VALIDATION_FAILED", "Registration validation failed", err)
	}

	email := utils.NormalizeEmail(req.Email)
	existing, err := sf.accountRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}
	if existing != nil {
		registrationsTotal.WithLabelValues("duplicate").Inc()
		return nil, NewBusinessError("EMAIL_ALREADY_REGISTERED", "Email already registered", ErrEmailAlreadyRegistered)
	}

	hash, err := sf.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	account := &models.Account{
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleCustomer,
		Status:        models.StatusPending,
		CompanyName:   strings.TrimSpace(req.CompanyName),
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Phone:         utils.NormalizePhone(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		CreatedAt:     utils.UTCNow(),
	}

	if err := sf.accountRepo.Save(ctx, account); err != nil {
		// Lost a race with a concurrent registration of the same email
		if errors.Is(err, repository.ErrDuplicateEmail) {
			registrationsTotal.WithLabelValues("duplicate").Inc()
			return nil, NewBusinessError("EMAIL_ALREADY_REGISTERED", "Email already registered", ErrEmailAlreadyRegistered)
		}
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	registrationsTotal.WithLabelValues("created").Inc()
	return &dto.RegisterResponse{
		Success: true,
		Message: registrationSuccessMessage,
		UserID:  account.ID.String(),
	}, nil
}

func (sf *SignupFlowImpl) validateRegisterRequest(req *dto.RegisterRequest) error {
	if req == nil {
		return ErrMissingRequiredFields
	}
	if utils.IsBlank(req.Email) || req.Password == "" || utils.IsBlank(req.CompanyName) ||
		utils.IsBlank(req.ContactPerson) || utils.IsBlank(req.Phone) {
		return ErrMissingRequiredFields
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return ErrInvalidEmail
	}
	if len(req.Password) < sf.passwordMinLength {
		return ErrWeakPassword
	}
	return nil
}
