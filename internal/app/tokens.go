package app

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"bookstore/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	// DefaultAccessTTL is how long an access token stays valid.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is how long a refresh token stays valid.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// CustomerID returns the numeric customer id stored in the subject claim.
func (c *Claims) CustomerID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. Zero TTLs fall back to the defaults.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccess returns a signed access token for c.
func (t *TokenIssuer) IssueAccess(c *domain.Customer) (string, error) {
	now := t.now()
	claims := Claims{
		Username: c.Username,
		Email:    c.Email,
		Roles:    c.Roles,
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(c.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	return t.sign(claims)
}

// IssueRefresh returns a signed refresh token for c along with its token id
// and expiry, which callers record so the token can be revoked.
func (t *TokenIssuer) IssueRefresh(c *domain.Customer) (token, tokenID string, expiresAt time.Time, err error) {
	now := t.now()
	tokenID = uuid.NewString()
	expiresAt = now.Add(t.refreshTTL)
	claims := Claims{
		Username: c.Username,
		Type:     TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatInt(c.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = t.sign(claims)
	return token, tokenID, expiresAt, err
}

// Parse verifies raw and checks that it carries the wanted token type.
func (t *TokenIssuer) Parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: want %s token, got %q", ErrInvalidToken, wantType, claims.Type)
	}
	return claims, nil
}

func (t *TokenIssuer) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}
