package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/safs-storefront/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const purposePasswordReset = "password_reset"

// TokenSubject is the account snapshot embedded into a session token
type TokenSubject struct {
	AccountID uuid.UUID
	Email     string
	Role      string
	Status    string
}

// AccountClaims are the claims carried by a session token.
// Role and status are a snapshot from issue time.
type AccountClaims struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Purpose   string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// PasswordResetClaims are the claims carried by a password reset token
type PasswordResetClaims struct {
	AccountID   string `json:"accountId"`
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// TokenService handles JWT token generation and validation
type TokenService interface {
	IssueAccessToken(subject TokenSubject) (token string, expiresAt time.Time, err error)
	ValidateToken(token string) (*AccountClaims, error)
	IssuePasswordResetToken(accountID uuid.UUID, email, currentHash string) (token string, expiresAt time.Time, err error)
	ValidatePasswordResetToken(token string) (*PasswordResetClaims, error)
	// MatchesCredential reports whether a reset token was issued against currentHash.
	// Once the password changes the token stops matching.
	MatchesCredential(claims *PasswordResetClaims, currentHash string) bool
}

// TokenServiceImpl implements TokenService with HS256
type TokenServiceImpl struct {
	secretKey        []byte
	accessTokenTTL   time.Duration
	passwordResetTTL time.Duration
	issuer           string
	now              func() time.Time
	parser           *jwt.Parser
}

// TokenOption customizes a TokenServiceImpl
type TokenOption func(*TokenServiceImpl)

// WithClock replaces the time source used for issuing and validating tokens
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenServiceImpl) { s.now = now }
}

// WithPasswordResetTTL overrides the lifetime of password reset tokens
func WithPasswordResetTTL(ttl time.Duration) TokenOption {
	return func(s *TokenServiceImpl) { s.passwordResetTTL = ttl }
}

// NewTokenService creates a new token service
func NewTokenService(secretKey string, accessTokenTTL time.Duration, issuer string, opts ...TokenOption) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if accessTokenTTL <= 0 {
		accessTokenTTL = utils.AccessTokenTTL
	}

	s := &TokenServiceImpl{
		secretKey:        []byte(secretKey),
		accessTokenTTL:   accessTokenTTL,
		passwordResetTTL: utils.PasswordResetTokenTTL,
		issuer:           issuer,
		now:              utils.UTCNow,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)

	return s, nil
}

// IssueAccessToken signs a session token for subject
func (s *TokenServiceImpl) IssueAccessToken(subject TokenSubject) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTokenTTL)

	claims := AccountClaims{
		AccountID:        subject.AccountID.String(),
		Email:            subject.Email,
		Role:             subject.Role,
		Status:           subject.Status,
		RegisteredClaims: s.registeredClaims(subject.AccountID, now, expiresAt),
	}

	token, err := s.generateToken(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateToken validates a session token and returns its claims
func (s *TokenServiceImpl) ValidateToken(token string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}

	if claims.Purpose != "" {
		return nil, ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.AccountID); err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IssuePasswordResetToken signs a single-use reset token bound to the current password hash
func (s *TokenServiceImpl) IssuePasswordResetToken(accountID uuid.UUID, email, currentHash string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.passwordResetTTL)

	claims := PasswordResetClaims{
		AccountID:        accountID.String(),
		Email:            email,
		Purpose:          purposePasswordReset,
		Fingerprint:      s.fingerprint(currentHash),
		RegisteredClaims: s.registeredClaims(accountID, now, expiresAt),
	}

	token, err := s.generateToken(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidatePasswordResetToken validates a reset token and returns its claims
func (s *TokenServiceImpl) ValidatePasswordResetToken(token string) (*PasswordResetClaims, error) {
	claims := &PasswordResetClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}

	if claims.Purpose != purposePasswordReset {
		return nil, ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.AccountID); err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (s *TokenServiceImpl) MatchesCredential(claims *PasswordResetClaims, currentHash string) bool {
	if claims == nil {
		return false
	}
	return hmac.Equal([]byte(claims.Fingerprint), []byte(s.fingerprint(currentHash)))
}

func (s *TokenServiceImpl) registeredClaims(accountID uuid.UUID, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   accountID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

// fingerprint derives a short keyed digest of a password hash so reset
// tokens never carry the hash itself
func (s *TokenServiceImpl) fingerprint(hash string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte("pwf:" + hash))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

func (s *TokenServiceImpl) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return ErrTokenInvalid
	}

	parsed, err := s.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}

	return nil
}

// generateToken generates a JWT token with the given claims
func (s *TokenServiceImpl) generateToken(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
