package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/store/memstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(memstore.New().Users(), auth.NewSigner([]byte("secret"), time.Hour))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	sess, err := s.Register(ctx, RegisterInput{Username: "reader", Email: " Reader@Example.com ", Password: "longenough"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "reader@example.com", sess.User.Email)
	assert.NotEqual(t, "longenough", sess.User.PasswordHash)

	_, err = s.Register(ctx, RegisterInput{Username: "again", Email: "reader@example.com", Password: "longenough"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	login, err := s.Login(ctx, "READER@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = s.Login(ctx, "reader@example.com", "wrong-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = s.Login(ctx, "nobody@example.com", "longenough")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	_, err := newService(t).Register(context.Background(), RegisterInput{Username: "x", Email: "bad", Password: "short"})
	require.Error(t, err)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "username")
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "password")
}

func TestRegisterPasswordTooLong(t *testing.T) {
	_, err := newService(t).Register(context.Background(), RegisterInput{
		Username: "reader",
		Email:    "reader@example.com",
		Password: strings.Repeat("p", 80),
	})
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "password")

	_, err = newService(t).Register(context.Background(), RegisterInput{
		Username: "reader",
		Email:    "reader@example.com",
		Password: strings.Repeat("p", 72),
	})
	assert.NoError(t, err)
}

func TestRegisterDisplayNameEmail(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	sess, err := s.Register(ctx, RegisterInput{Username: "bob", Email: "Bob <Bob@Example.com>", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", sess.User.Email)

	_, err = s.Register(ctx, RegisterInput{Username: "bob2", Email: "bob@example.com", Password: "longenough"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = s.Login(ctx, "bob@example.com", "longenough")
	assert.NoError(t, err)
}

func TestCreateAdminOnce(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	acct := AdminAccount{Username: "admin", Email: "admin@booktracker.local", Password: "gege1234"}

	created, err := s.CreateAdmin(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, "gege1234", created.Password)

	user, err := s.repo.FindByEmail(ctx, "admin@booktracker.local")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "gege1234"))

	_, err = s.CreateAdmin(ctx, acct)
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Admin already exists")
}

func TestCreateAdminGeneratesPassword(t *testing.T) {
	created, err := newService(t).CreateAdmin(context.Background(), AdminAccount{Username: "admin", Email: "root@example.com"})
	require.NoError(t, err)
	assert.Len(t, created.Password, 24)
}

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	_, err := s.SetAdmin(ctx, "missing", true)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	sess, err := s.Register(ctx, RegisterInput{Username: "reader", Email: "r@example.com", Password: "longenough"})
	require.NoError(t, err)
	u, err := s.SetAdmin(ctx, sess.User.ID, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}
