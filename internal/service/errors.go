package service

import (
	"errors"

	"storefront/internal/domain"
	"storefront/internal/payment"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidInput       = errors.New("invalid input")

	ErrProcessorNotConfigured = payment.ErrNotConfigured
	ErrProcessorUnavailable   = payment.ErrUnavailable
	ErrInvalidSignature       = payment.ErrInvalidSignature
)

// Requester is the authenticated identity behind a call
type Requester struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the requester holds the admin role
func (r Requester) IsAdmin() bool {
	return r.Role == domain.RoleAdmin
}

// CanAccess reports whether the requester may act on a resource owned by ownerID
func (r Requester) CanAccess(ownerID uuid.UUID) bool {
	return r.IsAdmin() || r.UserID == ownerID
}
