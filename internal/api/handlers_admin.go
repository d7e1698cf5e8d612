package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
)

// handleCreateAdmin is the one-time admin bootstrap. It only exists when a
// setup token is configured and the caller presents it.
func (s *Server) handleCreateAdmin(w http.ResponseWriter, r *http.Request) error {
	if s.opts.SetupToken == "" {
		s.routeNotFound(w, r)
		return nil
	}
	token := r.Header.Get("X-Setup-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.SetupToken)) != 1 {
		return apperr.Unauthorized("")
	}

	created, err := s.users.CreateAdmin(r.Context(), s.opts.Admin)
	if err != nil {
		return err
	}
	s.log.Info().Str("email", created.Email).Msg("Admin user created")
	respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Admin user created!",
		"username": created.Username,
		"email":    created.Email,
		"password": created.Password,
	})
	return nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	list, err := s.users.List(r.Context())
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) handleSetAdmin(w http.ResponseWriter, r *http.Request) error {
	var in struct {
		IsAdmin *bool `json:"isAdmin"`
	}
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	var v apperr.Validation
	v.Check(in.IsAdmin != nil, "isAdmin", "isAdmin is required")
	if err := v.Err(); err != nil {
		return err
	}
	user, err := s.users.SetAdmin(r.Context(), r.PathValue("id"), *in.IsAdmin)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, user)
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) error {
	userCount, err := s.users.Count(r.Context())
	if err != nil {
		return err
	}
	bookCount, err := s.books.Count(r.Context())
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, map[string]int64{"users": userCount, "books": bookCount})
	return nil
}
