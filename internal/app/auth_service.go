// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken indicates a malformed, tampered or wrong-type token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionNotFound indicates that the refresh session was revoked or never existed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the token has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the customer does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username is already in use")
	// ErrEmailTaken is returned when an email belongs to another customer.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrWeakPassword is returned for passwords failing domain.StrongPassword.
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper-case, lower-case, digit and special characters")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	Customer     *domain.Customer `json:"customer"`
}

// RegisterRequest carries the fields for a new customer account.
type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// AuthService handles authentication and refresh-token bookkeeping.
type AuthService struct {
	customers domain.CustomerRepository
	sessions  domain.RefreshSessionRepository
	tokens    *TokenIssuer
	hashCost  int
	now       func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(customers domain.CustomerRepository, sessions domain.RefreshSessionRepository, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		customers: customers,
		sessions:  sessions,
		tokens:    tokens,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// WithHashCost overrides the bcrypt cost used for new password hashes.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// Login authenticates a customer and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent, ip string) (*LoginResult, error) {
	c, err := s.customers.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil || c == nil || !c.Active || c.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, c, userAgent, ip)
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username, userAgent, ip string) (*LoginResult, error) {
	c, err := s.provision(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, c, userAgent, ip)
}

// ValidateForwardAuth resolves the customer named by a trusted reverse proxy's
// Remote-User header, provisioning it on first sight.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.Customer, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	return s.provision(ctx, remoteUser)
}

// Register validates req and creates an active customer with the USER role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.Customer, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	for _, f := range []struct{ name, value string }{
		{"username", req.Username},
		{"email", req.Email},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, &ValidationError{Field: f.name, Msg: "is required"}
		}
	}
	if !strings.Contains(req.Email, "@") {
		return nil, &ValidationError{Field: "email", Msg: "is not a valid address"}
	}

	if existing, err := s.customers.GetByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.customers.GetByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	if !domain.StrongPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	return s.customers.Create(ctx, &domain.Customer{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Address:      req.Address,
		Active:       true,
		Roles:        []string{domain.RoleUser},
	})
}

// Refresh exchanges a live refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	sess, err := s.sessions.GetByTokenID(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrSessionNotFound
	}
	if s.now().After(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, claims.ID)
		return "", ErrSessionExpired
	}

	c, err := s.customers.GetByID(ctx, sess.CustomerID)
	if err != nil {
		return "", err
	}
	if c == nil || !c.Active {
		return "", ErrUserNotFound
	}
	return s.tokens.IssueAccess(c)
}

// Logout revokes a refresh token. Unknown or invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.ID)
}

// Authenticate verifies an access token and loads its customer.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Customer, error) {
	claims, err := s.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	id, err := claims.CustomerID()
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.Active {
		return nil, ErrUserNotFound
	}
	return c, nil
}

// PurgeExpired drops refresh sessions past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

func (s *AuthService) issue(ctx context.Context, c *domain.Customer, userAgent, ip string) (*LoginResult, error) {
	access, err := s.tokens.IssueAccess(c)
	if err != nil {
		return nil, err
	}
	refresh, tokenID, expiresAt, err := s.tokens.IssueRefresh(c)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.sessions.Create(ctx, domain.RefreshSession{
		TokenID:    tokenID,
		CustomerID: c.ID,
		UserAgent:  userAgent,
		IP:         ip,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}
	if err := s.customers.TouchLastLogin(ctx, c.ID, now); err != nil {
		return nil, err
	}
	c.LastLogin = &now

	return &LoginResult{AccessToken: access, RefreshToken: refresh, Customer: c}, nil
}

// provision returns the customer named username, creating a passwordless
// account if none exists. SSO usernames are usually emails.
func (s *AuthService) provision(ctx context.Context, username string) (*domain.Customer, error) {
	c, err := s.customers.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	email := ""
	if strings.Contains(username, "@") {
		email = username
	}
	c, err = s.customers.Create(ctx, &domain.Customer{
		Username: username,
		Email:    email,
		Active:   true,
		Roles:    []string{domain.RoleUser},
	})
	if err != nil {
		// Lost a race on the unique constraint; the row exists now.
		if c, gerr := s.customers.GetByUsername(ctx, username); gerr == nil && c != nil {
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
