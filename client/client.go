package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/safs-storefront/app/dto"
)

const apiPrefix = "/api"

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the storefront API on behalf of one session
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
}

func New(baseURL string, session *Session, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if session == nil {
		session = NewSession(nil)
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Session:    session,
	}
}

// Do sends a JSON request and decodes a JSON answer into out when out is non-nil.
// Requests to /api paths carry the session token when one is held.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Session.Token(); token != "" && strings.HasPrefix(path, apiPrefix) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e dto.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, Code: e.Code}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	var out dto.RegisterResponse
	if err := c.Do(ctx, http.MethodPost, "/api/v1/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in and stores the session
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.startSession(ctx, "/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password})
}

func (c *Client) AdminCaptcha(ctx context.Context) (*dto.CaptchaChallengeResponse, error) {
	var out dto.CaptchaChallengeResponse
	if err := c.Do(ctx, http.MethodGet, "/api/v1/admin/auth/captcha", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLogin signs in through the admin page and stores the session
func (c *Client) AdminLogin(ctx context.Context, req dto.AdminLoginRequest) (*User, error) {
	return c.startSession(ctx, "/api/v1/admin/auth/login", req)
}

func (c *Client) startSession(ctx context.Context, path string, body any) (*User, error) {
	var out dto.LoginResponse
	if err := c.Do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}

	user := User{
		ID:            out.User.ID,
		Email:         out.User.Email,
		CompanyName:   out.User.CompanyName,
		ContactPerson: out.User.ContactPerson,
		Role:          out.User.Role,
		Status:        out.User.Status,
	}
	if err := c.Session.Save(out.Token, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the local session first, then tells the API so the sign-out is audited.
// A failed notification is logged and otherwise ignored.
func (c *Client) Logout(ctx context.Context) error {
	token := c.Session.Token()
	clearErr := c.Session.Clear()

	if token != "" {
		if err := c.notifyLogout(ctx, token); err != nil {
			log.Printf("logout notification failed: %v", err)
		}
	}
	return clearErr
}

func (c *Client) notifyLogout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (*dto.CurrentAccountResponse, error) {
	var out dto.CurrentAccountResponse
	if err := c.Do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Access(ctx context.Context) (*dto.AccessResponse, error) {
	var out dto.AccessResponse
	if err := c.Do(ctx, http.MethodGet, "/api/v1/account/access", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
