package books

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
	"github.com/dharsanguruparan/booktracker/internal/model"
	"github.com/dharsanguruparan/booktracker/internal/store/memstore"
	"github.com/dharsanguruparan/booktracker/internal/uploads"
)

func newService(t *testing.T) *Service {
	t.Helper()
	covers := uploads.NewLocalStore(t.TempDir())
	require.NoError(t, covers.Ensure(context.Background()))
	return NewService(memstore.New().Books(), covers, zerolog.Nop())
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	b, err := s.Create(ctx, "u1", Input{Title: "  Dune ", Author: "Herbert"})
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, model.StatusWantToRead, b.Status)
	assert.Equal(t, "u1", b.OwnerID)

	_, err = s.Create(ctx, "u1", Input{Title: "", Status: "abandoned", Rating: 9})
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "title")
	assert.Contains(t, e.Fields, "status")
	assert.Contains(t, e.Fields, "rating")
}

func TestOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	b, err := s.Create(ctx, "u1", Input{Title: "Dune"})
	require.NoError(t, err)

	_, err = s.Get(ctx, "u2", b.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = s.Update(ctx, "u2", b.ID, Input{Title: "Stolen"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(s.Delete(ctx, "u2", b.ID)))

	updated, err := s.Update(ctx, "u1", b.ID, Input{Title: "Dune", Status: model.StatusRead, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	list, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Delete(ctx, "u1", b.ID))
	_, err = s.Get(ctx, "u1", b.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSetCover(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	b, err := s.Create(ctx, "u1", Input{Title: "Dune"})
	require.NoError(t, err)

	_, err = s.SetCover(ctx, "u1", b.ID, strings.NewReader("text"), 4, "text/plain")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = s.SetCover(ctx, "u2", b.ID, strings.NewReader("img"), 3, "image/png")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := s.SetCover(ctx, "u1", b.ID, strings.NewReader("img"), 3, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.CoverURL, "/uploads/covers/"+b.ID))
	assert.True(t, strings.HasSuffix(got.CoverKey, ".png"))

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, got.CoverURL, list[0].CoverURL)
}
