// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// RoleUser is the role every registered customer receives.
const RoleUser = "USER"

// Customer represents a registered storefront user.
type Customer struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Phone              string     `json:"phone,omitempty"`
	Address            string     `json:"address,omitempty"`
	Active             bool       `json:"active"`
	Member             bool       `json:"member"`
	MembershipDiscount float64    `json:"membershipDiscount"`
	Roles              []string   `json:"roles"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// RefreshSession records an issued refresh token so it can be revoked.
type RefreshSession struct {
	TokenID    string
	CustomerID int64
	UserAgent  string
	IP         string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// CustomerRepository defines the port for customer persistence operations.
// Lookups return (nil, nil) when no row matches.
type CustomerRepository interface {
	GetByUsername(ctx context.Context, username string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	Create(ctx context.Context, c *Customer) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// RefreshSessionRepository defines the port for refresh token bookkeeping.
type RefreshSessionRepository interface {
	Create(ctx context.Context, s RefreshSession) error
	GetByTokenID(ctx context.Context, tokenID string) (*RefreshSession, error)
	Delete(ctx context.Context, tokenID string) error
	DeleteExpired(ctx context.Context) error
}
