package adapthttp

import (
	"errors"
	"net/http"

	"bookstore/internal/app"
	"bookstore/internal/domain"
)

// currentCustomer returns the authenticated customer or writes a 401.
func currentCustomer(w http.ResponseWriter, r *http.Request) (*domain.Customer, bool) {
	c := customerFrom(r.Context())
	if c == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authorization required"})
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := currentCustomer(w, r)
	if !ok {
		return
	}
	profile, err := s.profile.Get(r.Context(), c.ID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := currentCustomer(w, r)
	if !ok {
		return
	}
	var upd app.ProfileUpdate
	if err := parseJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	profile, err := s.profile.Update(r.Context(), c.ID, upd)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "profile updated", "data": profile})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := currentCustomer(w, r)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.profile.ChangePassword(r.Context(), c.ID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, app.ErrInvalidCredentials) {
		// 401 is reserved for token failures.
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "current password is incorrect"})
		return
	}
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password changed"})
}
