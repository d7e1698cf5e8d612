package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized("nope")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("get book: %w", NotFound("Book not found"))))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("admins only")))
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("exists")))
}

func TestValidation(t *testing.T) {
	var v Validation
	assert.NoError(t, v.Err())

	v.Check(true, "title", "ignored")
	v.Check(false, "title", "Title is required")
	v.Add("title", "second message")
	v.Add("rating", "Rating must be between 0 and 5")

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, map[string]string{
		"title":  "Title is required",
		"rating": "Rating must be between 0 and 5",
	}, e.Fields)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &Error{Kind: KindInternal, Message: "wrapped", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wrapped: cause", err.Error())
}
