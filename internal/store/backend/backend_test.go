package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store/memstore"
	"github.com/dharsanguruparan/booktracker/internal/store/mongostore"
	"github.com/dharsanguruparan/booktracker/internal/store/pgstore"
)

func TestOpenByScheme(t *testing.T) {
	b, err := Open("mongodb+srv://u:p@cluster0.example.net/books", database.Options{})
	require.NoError(t, err)
	assert.IsType(t, &mongostore.Backend{}, b)

	b, err = Open("postgresql://localhost:5432/books", database.Options{})
	require.NoError(t, err)
	assert.IsType(t, &pgstore.Backend{}, b)

	b, err = Open("memory://", database.Options{})
	require.NoError(t, err)
	assert.IsType(t, &memstore.Backend{}, b)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("redis://localhost:6379", database.Options{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Open("admin:secretpassword", database.Options{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	assert.NotContains(t, err.Error(), "secretpassword")
}
