// Package client is a Go consumer of the storefront API. It keeps the signed-in
// session and mirrors the server's role and status rules for navigation decisions.
package client

import (
	"sync"

	"github.com/amirphl/safs-storefront/models"
)

// User is the account summary returned alongside a session token
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	Role          string `json:"role"`
	Status        string `json:"status"`
}

// Session holds the current token and user. It is safe for concurrent use.
// Nothing is read from or written to the store implicitly: callers drive Load, Save and Clear.
type Session struct {
	store Store

	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Load restores the last saved session. A missing snapshot leaves the session signed out.
func (s *Session) Load() error {
	snap, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		s.token, s.user = "", nil
		return nil
	}
	user := snap.User
	s.token, s.user = snap.Token, &user
	return nil
}

// Save replaces the in-memory session and persists it
func (s *Session) Save(token string, user User) error {
	s.mu.Lock()
	s.token, s.user = token, &user
	s.mu.Unlock()

	return s.store.Save(Snapshot{Token: token, User: user})
}

// Clear signs out locally. The in-memory state is reset even when the store fails.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()

	return s.store.Clear()
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == models.RoleAdmin
}

// IsApproved uses the same predicate as the server: admins count as approved
func (s *Session) IsApproved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && models.IsEffectivelyApproved(s.user.Role, s.user.Status)
}

func (s *Session) IsPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Status == models.StatusPending
}
