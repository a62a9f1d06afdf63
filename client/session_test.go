package client

import (
	"path/filepath"
	"testing"

	"github.com/amirphl/safs-storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(role, status string) User {
	return User{ID: "1", Email: "buyer@parlour.co.za", Role: role, Status: status}
}

func TestSessionDerivedFlags(t *testing.T) {
	cases := []struct {
		name                                    string
		user                                    *User
		authenticated, admin, approved, pending bool
	}{
		{"SignedOut", nil, false, false, false, false},
		{"PendingCustomer", &User{Role: models.RoleCustomer, Status: models.StatusPending}, true, false, false, true},
		{"ApprovedCustomer", &User{Role: models.RoleCustomer, Status: models.StatusApproved}, true, false, true, false},
		{"DeclinedCustomer", &User{Role: models.RoleCustomer, Status: models.StatusDeclined}, true, false, false, false},
		{"PendingAdmin", &User{Role: models.RoleAdmin, Status: models.StatusPending}, true, true, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(NewMemoryStore())
			if tc.user != nil {
				require.NoError(t, s.Save("token", *tc.user))
			}
			assert.Equal(t, tc.authenticated, s.IsAuthenticated())
			assert.Equal(t, tc.admin, s.IsAdmin())
			assert.Equal(t, tc.approved, s.IsApproved())
			assert.Equal(t, tc.pending, s.IsPending())
		})
	}
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := NewSession(NewFileStore(path))
	require.NoError(t, first.Save("token-1", user(models.RoleCustomer, models.StatusApproved)))

	second := NewSession(NewFileStore(path))
	assert.False(t, second.IsAuthenticated())
	require.NoError(t, second.Load())
	assert.Equal(t, "token-1", second.Token())
	require.NotNil(t, second.User())
	assert.Equal(t, "buyer@parlour.co.za", second.User().Email)

	require.NoError(t, second.Clear())
	third := NewSession(NewFileStore(path))
	require.NoError(t, third.Load())
	assert.False(t, third.IsAuthenticated())
	assert.Empty(t, third.Token())
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, store.Clear())
}

func TestUserIsCopied(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.Save("token", user(models.RoleCustomer, models.StatusPending)))

	u := s.User()
	u.Role = models.RoleAdmin
	assert.False(t, s.IsAdmin())
}
