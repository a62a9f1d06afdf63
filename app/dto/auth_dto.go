package dto

import "time"

// RegisterRequest represents the self-registration payload
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email,max=255" example:"buyer@parlour.co.za"`
	Password      string `json:"password" validate:"required,min=6,max=72" example:"Coffin#2024"`
	CompanyName   string `json:"companyName" validate:"required,max=255" example:"Durban Funeral Parlour"`
	ContactPerson string `json:"contactPerson" validate:"required,max=255" example:"Thandi Nkosi"`
	Phone         string `json:"phone" validate:"required,max=50" example:"+27 31 555 0100"`
	Address       string `json:"address" validate:"omitempty,max=1000" example:"12 Smith Street, Durban"`
}

// RegisterResponse is returned once the pending account has been created
type RegisterResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Registration successful. Your account is pending approval."`
	UserID  string `json:"userId" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255" example:"buyer@parlour.co.za"`
	Password string `json:"password" validate:"required,max=72" example:"Coffin#2024"`
}

// AuthUser is the account summary returned with a session token
type AuthUser struct {
	ID            string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email         string `json:"email" example:"buyer@parlour.co.za"`
	CompanyName   string `json:"companyName" example:"Durban Funeral Parlour"`
	ContactPerson string `json:"contactPerson" example:"Thandi Nkosi"`
	Role          string `json:"role" example:"customer"`
	Status        string `json:"status" example:"pending"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Success bool     `json:"success" example:"true"`
	Token   string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User    AuthUser `json:"user"`
}

// CurrentAccountResponse describes the caller's stored account
type CurrentAccountResponse struct {
	Success   bool       `json:"success" example:"true"`
	User      AuthUser   `json:"user"`
	Approved  bool       `json:"approved" example:"false"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// AccessResponse summarizes what an approved caller may do in the storefront
type AccessResponse struct {
	Success          bool   `json:"success" example:"true"`
	Role             string `json:"role" example:"customer"`
	Status           string `json:"status" example:"approved"`
	Approved         bool   `json:"approved" example:"true"`
	Admin            bool   `json:"admin" example:"false"`
	CanViewPricing   bool   `json:"canViewPricing" example:"true"`
	CanRequestQuotes bool   `json:"canRequestQuotes" example:"true"`
}

// ResetPasswordRequest redeems an admin issued reset token
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Password string `json:"password" validate:"required,min=6,max=72" example:"NewPass#2024"`
}
