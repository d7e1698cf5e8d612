package api

import (
	"net/http"
	"strings"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/users"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var in users.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	sess, err := s.users.Register(r.Context(), in)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, sess)
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		return err
	}
	sess, err := s.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusOK, sess)
	return nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	claims, _ := auth.FromContext(r.Context())
	user, err := s.users.Get(r.Context(), claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Unauthorized("")
		}
		return err
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
	return nil
}

// authed requires a valid bearer token and stores its claims on the context.
func (s *Server) authed(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		token, ok := bearerToken(r)
		if !ok {
			return apperr.Unauthorized("")
		}
		claims, err := s.signer.Validate(token)
		if err != nil {
			return &apperr.Error{Kind: apperr.KindUnauthorized, Err: err}
		}
		return h(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// adminOnly is authed plus a fresh lookup of the admin flag, so a demotion
// takes effect before the token expires.
func (s *Server) adminOnly(h handlerFunc) handlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request) error {
		claims, _ := auth.FromContext(r.Context())
		user, err := s.users.Get(r.Context(), claims.UserID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Unauthorized("")
			}
			return err
		}
		if !user.IsAdmin {
			return apperr.Forbidden("Admin access required")
		}
		return h(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
