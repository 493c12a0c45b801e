// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"bookstore/internal/domain"

	"github.com/lib/pq"
)

const customerColumns = "customer_id, username, first_name, last_name, COALESCE(email, ''), password_hash, COALESCE(phone, ''), COALESCE(address, ''), is_active, is_member, membership_discount, roles, last_login, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var (
		c         domain.Customer
		lastLogin sql.NullTime
		roles     pq.StringArray
	)
	err := row.Scan(&c.ID, &c.Username, &c.FirstName, &c.LastName, &c.Email, &c.PasswordHash,
		&c.Phone, &c.Address, &c.Active, &c.Member, &c.MembershipDiscount, &roles, &lastLogin, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Roles = []string(roles)
	if lastLogin.Valid {
		t := lastLogin.Time
		c.LastLogin = &t
	}
	return &c, nil
}

// GetByUsername retrieves a customer by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	return scanCustomer(d.sql.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE username = $1", username))
}

// GetByEmail retrieves a customer by email address.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return scanCustomer(d.sql.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE email = $1", email))
}

// GetByID retrieves a customer by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return scanCustomer(d.sql.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE customer_id = $1", id))
}

// Create inserts a customer and returns the stored row.
// An empty email is stored as NULL so SSO-provisioned accounts do not collide.
func (d *DB) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	roles := c.Roles
	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return scanCustomer(d.sql.QueryRowContext(ctx,
		`INSERT INTO customers (username, first_name, last_name, email, password_hash, phone, address, is_active, is_member, membership_discount, roles, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12)
		 RETURNING `+customerColumns,
		c.Username, c.FirstName, c.LastName, c.Email, c.PasswordHash, c.Phone, c.Address,
		c.Active, c.Member, c.MembershipDiscount, pq.Array(roles), created,
	))
}

// Update persists the editable profile fields of a customer.
func (d *DB) Update(ctx context.Context, c *domain.Customer) error {
	_, err := d.sql.ExecContext(ctx,
		`UPDATE customers SET first_name = $1, last_name = $2, email = NULLIF($3, ''), phone = NULLIF($4, ''), address = NULLIF($5, '')
		 WHERE customer_id = $6`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.ID,
	)
	return err
}

// UpdatePassword replaces the stored password hash.
func (d *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := d.sql.ExecContext(ctx, "UPDATE customers SET password_hash = $1 WHERE customer_id = $2", passwordHash, id)
	return err
}

// TouchLastLogin records the time of a successful login.
func (d *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := d.sql.ExecContext(ctx, "UPDATE customers SET last_login = $1 WHERE customer_id = $2", at, id)
	return err
}

// RefreshSessionRepo implements refresh session bookkeeping on DB.
type RefreshSessionRepo struct {
	db *DB
}

// NewRefreshSessionRepo wraps a DB as a RefreshSessionRepository.
func NewRefreshSessionRepo(db *DB) *RefreshSessionRepo {
	return &RefreshSessionRepo{db: db}
}

// Create records an issued refresh token.
func (r *RefreshSessionRepo) Create(ctx context.Context, s domain.RefreshSession) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO refresh_sessions (token_id, customer_id, user_agent, ip, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		s.TokenID, s.CustomerID, s.UserAgent, s.IP, s.ExpiresAt, created,
	)
	return err
}

// GetByTokenID retrieves a refresh session by its token id.
func (r *RefreshSessionRepo) GetByTokenID(ctx context.Context, tokenID string) (*domain.RefreshSession, error) {
	var s domain.RefreshSession
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token_id, customer_id, user_agent, ip, expires_at, created_at FROM refresh_sessions WHERE token_id = $1",
		tokenID,
	).Scan(&s.TokenID, &s.CustomerID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete revokes a refresh session.
func (r *RefreshSessionRepo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE token_id = $1", tokenID)
	return err
}

// DeleteExpired deletes all expired refresh sessions.
func (r *RefreshSessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE expires_at < $1", time.Now())
	return err
}
