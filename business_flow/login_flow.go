package businessflow

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/amirphl/safs-storefront/utils"
	"github.com/google/uuid"
)

// Verified against unknown emails so both failure paths cost one bcrypt comparison
const timingEqualizerPassword = "safs-timing-equalizer"

// LoginFlow handles sign-in, sign-out and password reset for storefront accounts
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, actor Actor, metadata *ClientMetadata) (*dto.MessageResponse, error)
	CurrentAccount(ctx context.Context, actor Actor) (*dto.CurrentAccountResponse, error)
	Access(ctx context.Context, actor Actor) (*dto.AccessResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.MessageResponse, error)
}

// authenticator is the credential check shared by the customer and admin sign-in flows
type authenticator struct {
	accountRepo  repository.AccountRepository
	hasher       services.PasswordHasher
	tokenService services.TokenService
	bootstrap    AdminBootstrap
	audit        *AuditRecorder
	dummyHash    string
}

func newAuthenticator(
	accountRepo repository.AccountRepository,
	hasher services.PasswordHasher,
	tokenService services.TokenService,
	bootstrap AdminBootstrap,
	auditRepo repository.AuditLogRepository,
) *authenticator {
	dummyHash, err := hasher.Hash(timingEqualizerPassword)
	if err != nil {
		log.Printf("login: failed to prepare timing equalizer hash: %v", err)
	}
	return &authenticator{
		accountRepo:  accountRepo,
		hasher:       hasher,
		tokenService: tokenService,
		bootstrap:    bootstrap,
		audit:        NewAuditRecorder(auditRepo),
		dummyHash:    dummyHash,
	}
}

// verifyCredentials returns the account matching email and password. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (a *authenticator) verifyCredentials(ctx context.Context, email, password string, metadata *ClientMetadata) (*models.Account, error) {
	if utils.IsBlank(email) || password == "" {
		return nil, ErrCredentialsRequired
	}

	// Bootstrap must not block sign-in; an existing admin can still log in
	if a.bootstrap != nil {
		if _, err := a.bootstrap.EnsureDefaultAdmin(ctx); err != nil {
			log.Printf("login: admin bootstrap failed: %v", err)
		}
	}

	email = utils.NormalizeEmail(email)
	account, err := a.accountRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if account == nil {
		a.hasher.Verify(password, a.dummyHash)
		loginAttemptsTotal.WithLabelValues("unknown_email").Inc()
		a.audit.Record(ctx, models.AuditActionLoginFailed, email, nil, false, "unknown email", metadata)
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Verify(password, account.PasswordHash) {
		loginAttemptsTotal.WithLabelValues("wrong_password").Inc()
		a.audit.Record(ctx, models.AuditActionLoginFailed, email, account, false, "wrong password", metadata)
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// startSession stamps lastLogin and issues the access token
func (a *authenticator) startSession(ctx context.Context, account *models.Account, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	now := utils.UTCNow()
	if err := a.accountRepo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, err
	}
	account.LastLogin = &now

	token, _, err := a.tokenService.IssueAccessToken(services.TokenSubject{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		Status:    account.Status,
	})
	if err != nil {
		return nil, err
	}

	loginAttemptsTotal.WithLabelValues(loginOutcome(account)).Inc()
	a.audit.Record(ctx, models.AuditActionLogin, account.Email, account, true, "", metadata)

	return &dto.LoginResponse{
		Success: true,
		Token:   token,
		User:    ToAuthUser(*account),
	}, nil
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	*authenticator
	passwordMinLength int
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	hasher services.PasswordHasher,
	tokenService services.TokenService,
	bootstrap AdminBootstrap,
	passwordMinLength int,
) LoginFlow {
	return &LoginFlowImpl{
		authenticator:     newAuthenticator(accountRepo, hasher, tokenService, bootstrap, auditRepo),
		passwordMinLength: passwordMinLength,
	}
}

// Login authenticates an account by email and password
func (lf *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if req == nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Email and password required", ErrCredentialsRequired)
	}

	account, err := lf.verifyCredentials(ctx, req.Email, req.Password, metadata)
	if err != nil {
		return nil, loginError(err)
	}

	resp, err := lf.startSession(ctx, account, metadata)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	return resp, nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, ErrCredentialsRequired):
		return NewBusinessError("LOGIN_VALIDATION_FAILED", "Email and password required", err)
	case errors.Is(err, ErrInvalidCredentials):
		return NewBusinessError("INVALID_CREDENTIALS", "Invalid credentials", err)
	default:
		return NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
}

// Logout records the sign-out. Tokens are stateless, so the client discarding it ends the session.
func (lf *LoginFlowImpl) Logout(ctx context.Context, actor Actor, metadata *ClientMetadata) (*dto.MessageResponse, error) {
	account, err := lf.accountRepo.ByID(ctx, actor.AccountID)
	if err != nil {
		log.Printf("logout: failed to load account %s: %v", actor.AccountID, err)
	}
	lf.audit.RecordActor(ctx, models.AuditActionLogout, actor, account, "", metadata)

	return &dto.MessageResponse{
		Success: true,
		Message: "Logged out successfully",
	}, nil
}

// CurrentAccount returns the stored account behind the caller's token
func (lf *LoginFlowImpl) CurrentAccount(ctx context.Context, actor Actor) (*dto.CurrentAccountResponse, error) {
	account, err := lf.accountRepo.ByID(ctx, actor.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}

	return &dto.CurrentAccountResponse{
		Success:   true,
		User:      ToAuthUser(*account),
		Approved:  account.IsEffectivelyApproved(),
		LastLogin: account.LastLogin,
	}, nil
}

// Access reports what the token holder may do. It trusts the token claims, the same
// way the approval gate does.
func (lf *LoginFlowImpl) Access(ctx context.Context, actor Actor) (*dto.AccessResponse, error) {
	approved := models.IsEffectivelyApproved(actor.Role, actor.Status)
	return &dto.AccessResponse{
		Success:          true,
		Role:             actor.Role,
		Status:           actor.Status,
		Approved:         approved,
		Admin:            actor.IsAdmin(),
		CanViewPricing:   approved,
		CanRequestQuotes: approved,
	}, nil
}

// ResetPassword redeems an admin issued reset token. A token stops working once the
// password it was issued against has changed.
func (lf *LoginFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.MessageResponse, error) {
	if req == nil || strings.TrimSpace(req.Token) == "" || req.Password == "" {
		return nil, NewBusinessError("RESET_VALIDATION_FAILED", "Missing required fields", ErrMissingRequiredFields)
	}
	if len(req.Password) < lf.passwordMinLength {
		return nil, NewBusinessError("WEAK_PASSWORD", "Password is too short", ErrWeakPassword)
	}

	claims, err := lf.tokenService.ValidatePasswordResetToken(strings.TrimSpace(req.Token))
	if err != nil {
		return nil, NewBusinessError("INVALID_RESET_TOKEN", "Invalid or expired reset token", ErrInvalidResetToken)
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, NewBusinessError("INVALID_RESET_TOKEN", "Invalid or expired reset token", ErrInvalidResetToken)
	}

	account, err := lf.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}
	if account == nil || !lf.tokenService.MatchesCredential(claims, account.PasswordHash) {
		return nil, NewBusinessError("INVALID_RESET_TOKEN", "Invalid or expired reset token", ErrInvalidResetToken)
	}

	hash, err := lf.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	update := models.AccountUpdate{
		PasswordHash: &hash,
		UpdatedAt:    utils.UTCNowPtr(),
	}
	if _, err := lf.accountRepo.UpdateFields(ctx, models.AccountFilter{ID: &account.ID}, update); err != nil {
		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	lf.audit.Record(ctx, models.AuditActionPasswordReset, account.Email, account, true, "", metadata)

	return &dto.MessageResponse{
		Success: true,
		Message: "Password updated successfully",
	}, nil
}

// loginOutcome separates sign-ins that still await approval from fully approved ones
func loginOutcome(account *models.Account) string {
	switch {
	case models.IsEffectivelyApproved(account.Role, account.Status):
		return "success"
	case account.Status == models.StatusPending:
		return "pending_approval"
	default:
		return "declined"
	}
}
