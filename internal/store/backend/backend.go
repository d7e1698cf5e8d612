// Package backend picks a store implementation from the connection string
// scheme.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store"
	"github.com/dharsanguruparan/booktracker/internal/store/memstore"
	"github.com/dharsanguruparan/booktracker/internal/store/mongostore"
	"github.com/dharsanguruparan/booktracker/internal/store/pgstore"
)

var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// Open returns the backend for uri without connecting it.
func Open(uri string, opts database.Options) (store.Backend, error) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrUnsupportedScheme, redactedScheme(uri))
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return mongostore.New(uri, opts)
	case "postgres", "postgresql":
		return pgstore.New(uri, opts)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// redactedScheme avoids echoing a whole malformed string, which may hold a
// password, back into logs.
func redactedScheme(uri string) string {
	if len(uri) > 8 {
		return uri[:8] + "..."
	}
	return uri
}
