package dto

import "time"

// CustomerDTO is an account as shown to admins. Password material is never included.
type CustomerDTO struct {
	ID            string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email         string     `json:"email" example:"buyer@parlour.co.za"`
	CompanyName   string     `json:"companyName" example:"Durban Funeral Parlour"`
	ContactPerson string     `json:"contactPerson" example:"Thandi Nkosi"`
	Phone         string     `json:"phone" example:"+27315550100"`
	Address       string     `json:"address" example:"12 Smith Street, Durban"`
	Role          string     `json:"role" example:"customer"`
	Status        string     `json:"status" example:"pending"`
	StatusReason  string     `json:"statusReason,omitempty" example:"Verified trade references"`
	HasPassword   bool       `json:"hasPassword" example:"true"`
	AddedBy       string     `json:"addedBy,omitempty"`
	UpdatedBy     string     `json:"updatedBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// ListCustomersRequest filters the admin customer listing
type ListCustomersRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=pending approved declined all" example:"pending"`
	Search string `query:"search" validate:"omitempty,max=255" example:"durban"`
	Role   string `query:"role" validate:"omitempty,oneof=customer admin all" example:"customer"`
}

// ListCustomersResponse is the admin customer listing, newest first
type ListCustomersResponse struct {
	Success   bool          `json:"success" example:"true"`
	Customers []CustomerDTO `json:"customers"`
	Count     int           `json:"count" example:"12"`
}

// CreateCustomerRequest provisions an account on behalf of a customer
type CreateCustomerRequest struct {
	Email         string `json:"email" validate:"required,email,max=255" example:"orders@parlour.co.za"`
	CompanyName   string `json:"companyName" validate:"required,max=255" example:"Pietermaritzburg Memorial"`
	ContactPerson string `json:"contactPerson" validate:"required,max=255" example:"Sipho Dlamini"`
	Phone         string `json:"phone" validate:"required,max=50" example:"033 555 0199"`
	Address       string `json:"address" validate:"omitempty,max=1000"`
	Status        string `json:"status" validate:"omitempty,oneof=pending approved declined" example:"approved"`
}

// CreateCustomerResponse is returned after an admin provisions an account
type CreateCustomerResponse struct {
	Success    bool   `json:"success" example:"true"`
	Message    string `json:"message" example:"Customer added successfully"`
	CustomerID string `json:"customerId" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// UpdateCustomerStatusRequest moderates a customer account
type UpdateCustomerStatusRequest struct {
	Status string `json:"status" example:"approved"`
	Reason string `json:"reason" validate:"omitempty,max=1000" example:"Verified trade references"`
}

// UpdateCustomerRequest edits a customer profile. Absent fields are left unchanged.
type UpdateCustomerRequest struct {
	CompanyName   *string `json:"companyName" validate:"omitempty,min=1,max=255"`
	ContactPerson *string `json:"contactPerson" validate:"omitempty,min=1,max=255"`
	Email         *string `json:"email" validate:"omitempty,email,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,min=1,max=50"`
	Status        *string `json:"status" validate:"omitempty,oneof=pending approved declined"`
	Address       *string `json:"address" validate:"omitempty,max=1000"`
}

// UpdateCustomerRoleRequest promotes or demotes an account
type UpdateCustomerRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer admin" example:"admin"`
}

// BulkUpdateStatusRequest moderates several customers at once
type BulkUpdateStatusRequest struct {
	CustomerIDs []string `json:"customerIds" validate:"required,min=1,max=500,dive,uuid"`
	Status      string   `json:"status" validate:"required,oneof=pending approved declined" example:"approved"`
	Reason      string   `json:"reason" validate:"omitempty,max=1000"`
}

// BulkDeleteRequest removes several customers at once
type BulkDeleteRequest struct {
	CustomerIDs []string `json:"customerIds" validate:"required,min=1,max=500,dive,uuid"`
}

// BulkUpdateResponse reports how many customers a bulk status change touched
type BulkUpdateResponse struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"3 customers approved"`
	UpdatedCount int64  `json:"updatedCount" example:"3"`
}

// BulkDeleteResponse reports how many customers a bulk delete removed
type BulkDeleteResponse struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"3 customers deleted"`
	DeletedCount int64  `json:"deletedCount" example:"3"`
}

// PasswordResetTokenResponse hands an admin a reset token to pass on to the account holder
type PasswordResetTokenResponse struct {
	Success    bool      `json:"success" example:"true"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// CustomerExport is a rendered spreadsheet of customers
type CustomerExport struct {
	Filename string
	Content  []byte
}
