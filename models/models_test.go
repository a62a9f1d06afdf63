package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsEffectivelyApproved(t *testing.T) {
	tests := []struct {
		role     string
		status   string
		expected bool
	}{
		{RoleAdmin, StatusPending, true},
		{RoleAdmin, StatusDeclined, true},
		{RoleAdmin, StatusApproved, true},
		{RoleCustomer, StatusApproved, true},
		{RoleCustomer, StatusPending, false},
		{RoleCustomer, StatusDeclined, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsEffectivelyApproved(tt.role, tt.status))
			a := &Account{Role: tt.role, Status: tt.status}
			assert.Equal(t, tt.expected, a.IsEffectivelyApproved())
		})
	}
}

func TestAccountUpdate(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	by := uuid.New()
	status := StatusApproved
	reason := "verified trade account"

	u := AccountUpdate{Status: &status, StatusReason: &reason, UpdatedAt: &now, UpdatedBy: &by}

	cols := u.Columns()
	assert.Len(t, cols, 4)
	assert.Equal(t, StatusApproved, cols["status"])
	assert.Equal(t, now, cols["updated_at"])
	assert.NotContains(t, cols, "password_hash")

	a := &Account{Status: StatusPending, CompanyName: "Acme"}
	u.Apply(a)
	assert.Equal(t, StatusApproved, a.Status)
	assert.Equal(t, reason, *a.StatusReason)
	assert.Equal(t, now, *a.UpdatedAt)
	assert.Equal(t, by, *a.UpdatedBy)
	assert.Equal(t, "Acme", a.CompanyName)
}

func TestValidators(t *testing.T) {
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("owner"))
	assert.True(t, IsValidStatus(StatusDeclined))
	assert.False(t, IsValidStatus("archived"))
	assert.True(t, IsValidAuditAction(AuditActionLoginFailed))
	assert.False(t, IsValidAuditAction("signup"))
	assert.False(t, (&Account{}).HasCredential())
}
