// Package models contains domain entities and business models for the storefront authentication system
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_accounts_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null;default:''" json:"-"` // Never serialize password hash
	Role         string    `gorm:"type:account_role_enum;not null;default:'customer';index:idx_accounts_role" json:"role"`
	Status       string    `gorm:"type:account_status_enum;not null;default:'pending';index:idx_accounts_status" json:"status"`

	// Profile fields
	CompanyName   string `gorm:"size:255;not null" json:"company_name"`
	ContactPerson string `gorm:"size:255;not null" json:"contact_person"`
	Phone         string `gorm:"size:50;not null" json:"phone"`
	Address       string `gorm:"type:text;not null;default:''" json:"address"`

	// Moderation
	StatusReason *string    `gorm:"type:text" json:"status_reason,omitempty"`
	AddedBy      *uuid.UUID `gorm:"type:uuid" json:"added_by,omitempty"`
	UpdatedBy    *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`

	// Timestamps
	CreatedAt time.Time  `gorm:"not null;index:idx_accounts_created_at" json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate ensures ID and CreatedAt are set
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID            *uuid.UUID
	IDs           []uuid.UUID
	Email         *string
	Role          *string
	Status        *string
	Search        *string // case-insensitive match on email, company name and contact person
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// AccountUpdate lists the columns an update may touch. Nil fields are left alone.
type AccountUpdate struct {
	Email         *string
	PasswordHash  *string
	Role          *string
	Status        *string
	StatusReason  *string
	CompanyName   *string
	ContactPerson *string
	Phone         *string
	Address       *string
	UpdatedAt     *time.Time
	UpdatedBy     *uuid.UUID
}

// Columns returns the non-nil fields keyed by column name
func (u AccountUpdate) Columns() map[string]any {
	cols := map[string]any{}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.PasswordHash != nil {
		cols["password_hash"] = *u.PasswordHash
	}
	if u.Role != nil {
		cols["role"] = *u.Role
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.StatusReason != nil {
		cols["status_reason"] = *u.StatusReason
	}
	if u.CompanyName != nil {
		cols["company_name"] = *u.CompanyName
	}
	if u.ContactPerson != nil {
		cols["contact_person"] = *u.ContactPerson
	}
	if u.Phone != nil {
		cols["phone"] = *u.Phone
	}
	if u.Address != nil {
		cols["address"] = *u.Address
	}
	if u.UpdatedAt != nil {
		cols["updated_at"] = *u.UpdatedAt
	}
	if u.UpdatedBy != nil {
		cols["updated_by"] = *u.UpdatedBy
	}
	return cols
}

// Apply copies the non-nil fields onto a
func (u AccountUpdate) Apply(a *Account) {
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.Role != nil {
		a.Role = *u.Role
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.StatusReason != nil {
		reason := *u.StatusReason
		a.StatusReason = &reason
	}
	if u.CompanyName != nil {
		a.CompanyName = *u.CompanyName
	}
	if u.ContactPerson != nil {
		a.ContactPerson = *u.ContactPerson
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.Address != nil {
		a.Address = *u.Address
	}
	if u.UpdatedAt != nil {
		at := *u.UpdatedAt
		a.UpdatedAt = &at
	}
	if u.UpdatedBy != nil {
		by := *u.UpdatedBy
		a.UpdatedBy = &by
	}
}

// IsEffectivelyApproved is the single approval predicate: admins are always
// treated as approved regardless of their stored status.
func IsEffectivelyApproved(role, status string) bool {
	return role == RoleAdmin || status == StatusApproved
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsEffectivelyApproved() bool {
	return IsEffectivelyApproved(a.Role, a.Status)
}

// HasCredential reports whether the account can sign in with a password.
// Admin provisioned accounts start without one.
func (a *Account) HasCredential() bool {
	return a.PasswordHash != ""
}

// IsValidRole reports whether role is a known account role
func IsValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}

// IsValidStatus reports whether status is a known account status
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}
