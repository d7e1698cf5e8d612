// Package api exposes the HTTP surface: the auth, books and admin route
// groups, the admin bootstrap, static files and the error translator.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/books"
	"github.com/dharsanguruparan/booktracker/internal/users"
)

const defaultMaxBodyBytes = 1 << 20

// Options carries the collaborators and settings a Server is built from.
type Options struct {
	Log    zerolog.Logger
	Users  *users.Service
	Books  *books.Service
	Signer *auth.Signer

	// PublicDir holds index.html, images/ and any other static asset.
	PublicDir string
	// UploadsDir is served under /uploads/ when covers are stored locally.
	// Empty disables the route.
	UploadsDir  string
	CORSOrigins []string
	// Development adds the error detail to 500 responses.
	Development  bool
	MaxBodyBytes int64

	// SetupToken gates GET /create-admin. Empty disables the route.
	SetupToken string
	Admin      users.AdminAccount
}

// Server exposes HTTP endpoints for accounts and shelves.
type Server struct {
	opts   Options
	log    zerolog.Logger
	users  *users.Service
	books  *books.Service
	signer *auth.Signer
	server *http.Server
}

// New constructs a Server with its routes and middleware in place.
func New(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		opts:   opts,
		log:    opts.Log.With().Str("component", "http").Logger(),
		users:  opts.Users,
		books:  opts.Books,
		signer: opts.Signer,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return chain(
		recovery(s.log, s.opts.Development),
		requestLogger(s.log),
		cors(s.opts.CORSOrigins),
		limitBody(s.opts.MaxBodyBytes),
	)(s.routes())
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/test", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, message("API is working!"))
	})
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /create-admin", s.handle(s.handleCreateAdmin))

	mux.HandleFunc("POST /api/auth/register", s.handle(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.handle(s.handleLogin))
	mux.HandleFunc("GET /api/auth/me", s.handle(s.authed(s.handleMe)))

	mux.HandleFunc("GET /api/books", s.handle(s.authed(s.handleListBooks)))
	mux.HandleFunc("POST /api/books", s.handle(s.authed(s.handleCreateBook)))
	mux.HandleFunc("GET /api/books/{id}", s.handle(s.authed(s.handleGetBook)))
	mux.HandleFunc("PUT /api/books/{id}", s.handle(s.authed(s.handleUpdateBook)))
	mux.HandleFunc("DELETE /api/books/{id}", s.handle(s.authed(s.handleDeleteBook)))
	mux.HandleFunc("POST /api/books/{id}/cover", s.handle(s.authed(s.handleUploadCover)))

	mux.HandleFunc("GET /api/admin/users", s.handle(s.adminOnly(s.handleListUsers)))
	mux.HandleFunc("PUT /api/admin/users/{id}/admin", s.handle(s.adminOnly(s.handleSetAdmin)))
	mux.HandleFunc("GET /api/admin/stats", s.handle(s.adminOnly(s.handleStats)))

	mux.HandleFunc("GET /images/", s.serveDir("/images/", s.publicPath("images")))
	if s.opts.UploadsDir != "" {
		mux.HandleFunc("GET /uploads/", s.serveDir("/uploads/", s.opts.UploadsDir))
	}
	mux.HandleFunc("/", s.handleFallback)
	return mux
}

// Serve accepts connections on ln until Shutdown is called. A closed server
// is not an error.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
