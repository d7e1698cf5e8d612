// Package users implements registration, login and the account operations
// behind the auth and admin route groups.
package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

const (
	minPasswordLen = 8
	minUsernameLen = 3
	maxUsernameLen = 50
)

// Session is returned by Register and Login.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminAccount describes the bootstrap administrator.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// AdminCreated echoes the bootstrap credentials once, including the plaintext
// password, so the operator can log in.
type AdminCreated struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	repo   store.Users
	signer *auth.Signer
}

func NewService(repo store.Users, signer *auth.Signer) *Service {
	return &Service{repo: repo, signer: signer}
}

// NormalizeEmail is applied to every email before it reaches the store, so
// uniqueness holds regardless of case. A display-name form such as
// "Bob <bob@example.com>" is reduced to the bare address.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err == nil {
		email = addr.Address
	}
	return strings.ToLower(email)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)

	var v apperr.Validation
	n := utf8.RuneCountInString(in.Username)
	v.Check(n >= minUsernameLen && n <= maxUsernameLen, "username",
		fmt.Sprintf("Username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	_, mailErr := mail.ParseAddress(in.Email)
	v.Check(in.Email != "" && mailErr == nil, "email", "A valid email is required")
	v.Check(len(in.Password) >= minPasswordLen, "password",
		fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	v.Check(len(in.Password) <= auth.MaxPasswordBytes, "password",
		fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.create(ctx, in.Username, in.Email, in.Password, false)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.BadRequest("User already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	return s.session(user)
}

func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]model.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if list == nil {
		list = []model.User{}
	}
	return list, nil
}

func (s *Service) SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.User, error) {
	user, err := s.repo.SetAdmin(ctx, id, isAdmin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("set admin: %w", err)
	}
	return user, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// CreateAdmin creates the bootstrap administrator unless a user with that
// email already exists. An empty password is replaced by a random one.
func (s *Service) CreateAdmin(ctx context.Context, acct AdminAccount) (*AdminCreated, error) {
	email := NormalizeEmail(acct.Email)
	if email == "" {
		return nil, apperr.BadRequest("Admin email is not configured")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperr.BadRequest("Admin already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	password := acct.Password
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperr.BadRequest(fmt.Sprintf("Admin password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if password == "" {
		generated, err := randomPassword()
		if err != nil {
			return nil, err
		}
		password = generated
	}
	_, err := s.create(ctx, acct.Username, email, password, true)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.BadRequest("Admin already exists")
	}
	if err != nil {
		return nil, err
	}
	return &AdminCreated{Username: acct.Username, Email: email, Password: password}, nil
}

func (s *Service) create(ctx context.Context, username, email, password string, isAdmin bool) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) session(user *model.User) (*Session, error) {
	token, err := s.signer.Sign(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
