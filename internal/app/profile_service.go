package app

import (
	"context"
	"strings"

	"bookstore/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

// ProfileService manages a customer's own profile.
type ProfileService struct {
	customers domain.CustomerRepository
	hashCost  int
}

// NewProfileService creates a ProfileService.
func NewProfileService(customers domain.CustomerRepository) *ProfileService {
	return &ProfileService{customers: customers, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost used for new password hashes.
func (s *ProfileService) WithHashCost(cost int) *ProfileService {
	s.hashCost = cost
	return s
}

// Get loads the profile of customerID.
func (s *ProfileService) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrUserNotFound
	}
	return c, nil
}

// Update applies upd to the customer's profile.
func (s *ProfileService) Update(ctx context.Context, customerID int64, upd ProfileUpdate) (*domain.Customer, error) {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		c.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		c.LastName = *upd.LastName
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !strings.Contains(email, "@") {
			return nil, &ValidationError{Field: "email", Msg: "is not a valid address"}
		}
		other, err := s.customers.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != c.ID {
			return nil, ErrEmailTaken
		}
		c.Email = email
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if upd.Address != nil {
		c.Address = *upd.Address
	}

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *ProfileService) ChangePassword(ctx context.Context, customerID int64, oldPassword, newPassword string) error {
	c, err := s.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if c.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	if !domain.StrongPassword(newPassword) {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return err
	}
	return s.customers.UpdatePassword(ctx, c.ID, string(hash))
}
