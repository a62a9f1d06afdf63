package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for session tokens (7 days)
	AccessTokenTTL = 7 * 24 * time.Hour

	// PasswordResetTokenTTL is the time-to-live for admin issued password reset tokens
	PasswordResetTokenTTL = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Listing defaults
const (
	DefaultAuditLogPageSize = 30
	MaxAuditLogPageSize     = 200
	MaxBulkOperationSize    = 500
)

// DefaultPhoneRegion is used when a phone number carries no country prefix
const DefaultPhoneRegion = "ZA"
