package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
	"github.com/amirphl/safs-storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	logoutStatus int
	logouts      atomic.Int32
	lastAuth     atomic.Value
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "Coffin#2024" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
			return
		}
		_ = json.NewEncoder(w).Encode(dto.LoginResponse{
			Success: true,
			Token:   "session-token",
			User:    dto.AuthUser{ID: "42", Email: req.Email, Role: models.RoleCustomer, Status: models.StatusApproved},
		})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(f.logoutStatus)
	})
	mux.HandleFunc("GET /api/v1/account/access", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(dto.AccessResponse{Success: true, Approved: true})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, logoutStatus int) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{logoutStatus: logoutStatus}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, NewSession(NewMemoryStore()), 2*time.Second), api
}

func TestLoginStoresSession(t *testing.T) {
	c, api := newTestClient(t, http.StatusOK)
	ctx := context.Background()

	u, err := c.Login(ctx, "buyer@parlour.co.za", "Coffin#2024")
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.True(t, c.Session.IsApproved())
	assert.Equal(t, "session-token", c.Session.Token())

	_, err = c.Access(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", api.lastAuth.Load())
}

func TestLoginFailure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK)

	_, err := c.Login(context.Background(), "buyer@parlour.co.za", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, c.Session.IsAuthenticated())
}

func TestTokenOnlySentToAPIPaths(t *testing.T) {
	c, api := newTestClient(t, http.StatusOK)
	require.NoError(t, c.Session.Save("session-token", User{Role: models.RoleCustomer}))

	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/healthz", nil, nil))
	assert.Equal(t, "", api.lastAuth.Load())
}

func TestLogoutAlwaysClears(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		c, api := newTestClient(t, status)
		_, err := c.Login(context.Background(), "buyer@parlour.co.za", "Coffin#2024")
		require.NoError(t, err)

		require.NoError(t, c.Logout(context.Background()))
		assert.False(t, c.Session.IsAuthenticated())
		assert.EqualValues(t, 1, api.logouts.Load())
		assert.Equal(t, "Bearer session-token", api.lastAuth.Load())
	}
}

func TestLogoutWithUnreachableAPI(t *testing.T) {
	c := New("http://127.0.0.1:1", nil, 200*time.Millisecond)
	require.NoError(t, c.Session.Save("token", User{Role: models.RoleCustomer}))

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.Session.IsAuthenticated())
}
