package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	"github.com/amirphl/safs-storefront/models"
	"github.com/amirphl/safs-storefront/repository"
)

// AdminAuthFlow represents the admin sign-in page flow used by handlers
type AdminAuthFlow interface {
	InitCaptcha(ctx context.Context) (*dto.CaptchaChallengeResponse, error)
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// AdminAuthFlowImpl provides captcha-init and admin credential verification
type AdminAuthFlowImpl struct {
	auth           *authenticator
	captchaSvc     services.CaptchaService
	captchaEnabled bool
}

func NewAdminAuthFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	hasher services.PasswordHasher,
	tokenService services.TokenService,
	bootstrap AdminBootstrap,
	captchaSvc services.CaptchaService,
	captchaEnabled bool,
) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		auth:           newAuthenticator(accountRepo, hasher, tokenService, bootstrap, auditRepo),
		captchaSvc:     captchaSvc,
		captchaEnabled: captchaEnabled && captchaSvc != nil,
	}
}

func (af *AdminAuthFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaChallengeResponse, error) {
	if af.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_NOT_AVAILABLE", "Captcha service not available", ErrCaptchaRequired)
	}
	ch, err := af.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.CaptchaChallengeResponse{
		Success:     true,
		ChallengeID: ch.ID,
		MasterImage: ch.MasterImageBase64,
		ThumbImage:  ch.ThumbImageBase64,
		ExpiresAt:   ch.ExpiresAt,
	}, nil
}

// Login signs in through the admin page. Valid credentials of a non-admin account
// are refused without issuing a token.
func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if req == nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Email and password required", ErrCredentialsRequired)
	}

	// Verify captcha first
	if af.captchaEnabled {
		if strings.TrimSpace(req.CaptchaID) == "" {
			return nil, NewBusinessError("CAPTCHA_REQUIRED", "Captcha challenge missing", ErrCaptchaRequired)
		}
		if !af.captchaSvc.VerifyRotate(ctx, req.CaptchaID, req.CaptchaAngle) {
			return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrInvalidCaptcha)
		}
	}

	account, err := af.auth.verifyCredentials(ctx, req.Email, req.Password, metadata)
	if err != nil {
		return nil, loginError(err)
	}

	if !account.IsAdmin() {
		loginAttemptsTotal.WithLabelValues("not_admin").Inc()
		af.auth.audit.Record(ctx, models.AuditActionLoginFailed, account.Email, account, false, "admin access required", metadata)
		return nil, NewBusinessError("ADMIN_ACCESS_REQUIRED", "Admin access required", ErrAdminAccessRequired)
	}

	resp, err := af.auth.startSession(ctx, account, metadata)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	return resp, nil
}
