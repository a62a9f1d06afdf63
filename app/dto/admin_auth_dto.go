package dto

import "time"

// CaptchaChallengeResponse carries a rotate captcha challenge for the admin sign-in page
type CaptchaChallengeResponse struct {
	Success     bool      `json:"success" example:"true"`
	ChallengeID string    `json:"challengeId" example:"2b6f0cc9-4b8b-4c36-9d1f-0f1f3a3e7e0b"`
	MasterImage string    `json:"masterImage"`
	ThumbImage  string    `json:"thumbImage"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AdminLoginRequest signs an admin in. Captcha fields are required when the captcha is enabled.
type AdminLoginRequest struct {
	Email        string  `json:"email" validate:"required,max=255" example:"admin@safuneralsupplies.co.za"`
	Password     string  `json:"password" validate:"required,max=72" example:"Admin123!"`
	CaptchaID    string  `json:"captchaId" validate:"omitempty,uuid" example:"2b6f0cc9-4b8b-4c36-9d1f-0f1f3a3e7e0b"`
	CaptchaAngle float64 `json:"captchaAngle" validate:"gte=0,lte=360" example:"137"`
}
