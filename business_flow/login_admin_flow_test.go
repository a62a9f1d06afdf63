package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/app/services"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/models"
	testingutil "github.com/amirphl/safs-storefront/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCaptcha accepts a single challenge ID with a fixed angle
type stubCaptcha struct {
	id    string
	angle float64
}

func (c *stubCaptcha) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{
		ID:                c.id,
		MasterImageBase64: "data:image/png;base64,master",
		ThumbImageBase64:  "data:image/png;base64,thumb",
		ExpiresAt:         time.Now().Add(time.Minute),
	}, nil
}

func (c *stubCaptcha) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return challengeID == c.id && userAngle == c.angle
}

func TestAdminAuthFlow(t *testing.T) {
	ctx := context.Background()
	captcha := &stubCaptcha{id: "2b6f0cc9-4b8b-4c36-9d1f-0f1f3a3e7e0b", angle: 137}

	newFlow := func(env *flowEnv, enabled bool) businessflow.AdminAuthFlow {
		return businessflow.NewAdminAuthFlow(env.accounts, env.audit, env.hasher, env.tokens, env.bootstrap, captcha, enabled)
	}

	t.Run("InitCaptcha", func(t *testing.T) {
		env := newFlowEnv(t)
		resp, err := newFlow(env, true).InitCaptcha(ctx)
		require.NoError(t, err)
		assert.Equal(t, captcha.id, resp.ChallengeID)
		assert.NotEmpty(t, resp.MasterImage)
		assert.NotEmpty(t, resp.ThumbImage)
	})

	t.Run("AdminSignsIn", func(t *testing.T) {
		env := newFlowEnv(t)
		resp, err := newFlow(env, true).Login(ctx, &dto.AdminLoginRequest{
			Email:        "admin@safuneralsupplies.co.za",
			Password:     "Admin123!",
			CaptchaID:    captcha.id,
			CaptchaAngle: 137,
		}, metadata())
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("CaptchaRequiredWhenEnabled", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := newFlow(env, true).Login(ctx, &dto.AdminLoginRequest{
			Email:    "admin@safuneralsupplies.co.za",
			Password: "Admin123!",
		}, metadata())
		assert.True(t, businessflow.IsCaptchaRequired(err))
	})

	t.Run("WrongAngle", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := newFlow(env, true).Login(ctx, &dto.AdminLoginRequest{
			Email:        "admin@safuneralsupplies.co.za",
			Password:     "Admin123!",
			CaptchaID:    captcha.id,
			CaptchaAngle: 10,
		}, metadata())
		assert.True(t, businessflow.IsInvalidCaptcha(err))
	})

	t.Run("CaptchaSkippedWhenDisabled", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := newFlow(env, false).Login(ctx, &dto.AdminLoginRequest{
			Email:    "admin@safuneralsupplies.co.za",
			Password: "Admin123!",
		}, metadata())
		require.NoError(t, err)
	})

	t.Run("CustomerIsRefused", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := env.fixtures.CreateTestAccount(ctx,
			testingutil.WithEmail("buyer@parlour.co.za"),
			testingutil.WithStatus(models.StatusApproved),
		)
		require.NoError(t, err)

		resp, err := newFlow(env, false).Login(ctx, &dto.AdminLoginRequest{
			Email:    "buyer@parlour.co.za",
			Password: testingutil.DefaultTestPassword,
		}, metadata())
		assert.Nil(t, resp)
		assert.True(t, businessflow.IsAdminAccessRequired(err))
	})
}
