// Package app boots the service: it validates configuration, prepares the
// uploads store, starts the single database connection, serves HTTP and
// tears everything down on interrupt. Run reports how the process should
// exit instead of exiting itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/booktracker/internal/api"
	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/books"
	"github.com/dharsanguruparan/booktracker/internal/config"
	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store"
	"github.com/dharsanguruparan/booktracker/internal/store/backend"
	"github.com/dharsanguruparan/booktracker/internal/uploads"
	"github.com/dharsanguruparan/booktracker/internal/users"
)

// Stage names the boot or shutdown step an Outcome came from.
type Stage string

const (
	StageNone     Stage = ""
	StageConfig   Stage = "config"
	StageUploads  Stage = "uploads"
	StageDatabase Stage = "database"
	StageListen   Stage = "listen"
	StageServe    Stage = "serve"
	StageShutdown Stage = "shutdown"
)

// Outcome is the result of Run. Code is the process exit status.
type Outcome struct {
	Code  int
	Stage Stage
	Err   error
}

func (o Outcome) String() string {
	if o.Err == nil {
		return fmt.Sprintf("exit %d", o.Code)
	}
	return fmt.Sprintf("exit %d (%s): %v", o.Code, o.Stage, o.Err)
}

func fail(stage Stage, err error) Outcome {
	return Outcome{Code: 1, Stage: stage, Err: err}
}

// Opener builds the backend for a connection string.
type Opener func(uri string, opts database.Options) (store.Backend, error)

// ListenFunc binds the HTTP listener.
type ListenFunc func(network, addr string) (net.Listener, error)

// Option customizes an App.
type Option func(*App)

// WithOpener replaces the scheme-based backend selection.
func WithOpener(open Opener) Option {
	return func(a *App) { a.open = open }
}

// WithListener replaces net.Listen.
func WithListener(listen ListenFunc) Option {
	return func(a *App) { a.listen = listen }
}

// WithUploads replaces the uploads store chosen from configuration.
func WithUploads(s uploads.Store) Option {
	return func(a *App) { a.covers = s }
}

// App owns every long-lived resource of the process.
type App struct {
	cfg    *config.Config
	log    zerolog.Logger
	open   Opener
	listen ListenFunc
	covers uploads.Store

	ready     chan struct{}
	readyOnce sync.Once
	addr      net.Addr
}

// New constructs an App. Nothing is opened until Run.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		log:    log,
		open:   backend.Open,
		listen: net.Listen,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ready is closed once the listener is bound and the ready message logged.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr is the bound listener address. It is only valid after Ready.
func (a *App) Addr() net.Addr {
	<-a.ready
	return a.addr
}

// Run boots the service and blocks until ctx is cancelled or a fatal error
// occurs. The database connection is attempted in the background while the
// listener starts; its failure stops the process.
func (a *App) Run(ctx context.Context) Outcome {
	if a.cfg.DefaultURIUsed {
		a.log.Warn().
			Str("uri", config.RedactURI(a.cfg.DatabaseURI)).
			Msg("MONGODB_URI is not set; using the local development database")
	}

	covers, uploadsDir, err := a.uploadsStore()
	if err != nil {
		a.log.Error().Err(err).Msg("Error creating uploads store")
		return fail(StageUploads, err)
	}
	if err := covers.Ensure(ctx); err != nil {
		a.log.Error().Err(err).Msg("Error creating uploads directory")
		return fail(StageUploads, err)
	}

	if err := a.cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingDatabaseURI) {
			a.log.Error().Msg("Database connection string is missing. Please set MONGODB_URI in your environment or .env file")
		} else {
			a.log.Error().Err(err).Msg("Invalid configuration")
		}
		return fail(StageConfig, err)
	}

	db, err := a.open(a.cfg.DatabaseURI, a.dbOptions())
	if err != nil {
		a.log.Error().Err(err).Msg("Cannot open database backend")
		return fail(StageConfig, err)
	}
	conn := database.NewConnector(db, a.cfg.DatabaseURI, a.log)

	connectCtx, cancelConnect := context.WithCancel(ctx)
	defer cancelConnect()
	connected := make(chan error, 1)
	go func() { connected <- conn.Connect(connectCtx) }()

	ln, err := a.listen("tcp", a.cfg.Addr())
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			a.log.Error().Int("port", a.cfg.Port).Msgf("Port %d is already in use", a.cfg.Port)
		} else {
			a.log.Error().Err(err).Msg("Server error")
		}
		cancelConnect()
		a.closeDatabase(conn)
		return fail(StageListen, err)
	}

	srv := a.newServer(db, covers, uploadsDir)
	a.addr = ln.Addr()
	port := a.cfg.Port
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	a.log.Info().Int("port", port).Msgf("Server running on port %d", port)
	a.log.Info().Msgf("API available at http://localhost:%d/api", port)
	a.readyOnce.Do(func() { close(a.ready) })

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("Shutdown signal received")
			cancelConnect()
			return a.shutdown(srv, conn)
		case err := <-connected:
			connected = nil
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				// Cancelled by the interrupt; the ctx.Done branch reports it.
				continue
			}
			a.log.Error().Err(err).Msg("Database initial connection error")
			a.log.Error().Msg("Please make sure the database server is running and reachable from this host.")
			if out := a.shutdown(srv, conn); out.Code != 0 {
				a.log.Error().Err(out.Err).Msg("Cleanup after failed connect")
			}
			return fail(StageDatabase, err)
		case err := <-served:
			if err == nil {
				err = errors.New("http server stopped unexpectedly")
			}
			a.log.Error().Err(err).Msg("Server error")
			cancelConnect()
			a.closeDatabase(conn)
			return fail(StageServe, err)
		}
	}
}

func (a *App) dbOptions() database.Options {
	return database.Options{
		ServerSelectionTimeout: a.cfg.ServerSelectionTimeout,
		SocketTimeout:          a.cfg.SocketTimeout,
	}
}

// uploadsStore returns the configured cover store and, for the local store,
// the directory the HTTP server should expose.
func (a *App) uploadsStore() (uploads.Store, string, error) {
	if a.covers != nil {
		if local, ok := a.covers.(*uploads.LocalStore); ok {
			return local, local.Dir(), nil
		}
		return a.covers, "", nil
	}
	if a.cfg.S3Enabled() {
		s3, err := uploads.NewS3Store(uploads.S3Config{
			Endpoint:  a.cfg.S3Endpoint,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
			Bucket:    a.cfg.S3Bucket,
			Region:    a.cfg.S3Region,
			UseSSL:    a.cfg.S3UseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	}
	return uploads.NewLocalStore(a.cfg.UploadsDir), a.cfg.UploadsDir, nil
}

func (a *App) newServer(db store.Backend, covers uploads.Store, uploadsDir string) *api.Server {
	signer := auth.NewSigner([]byte(a.cfg.JWTSecret), a.cfg.TokenTTL)
	return api.New(api.Options{
		Log:         a.log,
		Users:       users.NewService(db.Users(), signer),
		Books:       books.NewService(db.Books(), covers, a.log),
		Signer:      signer,
		PublicDir:   a.cfg.PublicDir,
		UploadsDir:  uploadsDir,
		CORSOrigins: a.cfg.CORSOrigins,
		Development: a.cfg.Development(),
		SetupToken:  a.cfg.AdminSetupToken,
		Admin:       a.adminAccount(),
	})
}

func (a *App) adminAccount() users.AdminAccount {
	return users.AdminAccount{
		Username: a.cfg.AdminUsername,
		Email:    a.cfg.AdminEmail,
		Password: a.cfg.AdminPassword,
	}
}

// shutdown stops HTTP first so no request sees a closed database, then closes
// the connection. Both share one ShutdownTimeout budget.
func (a *App) shutdown(srv *api.Server, conn *database.Connector) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("Error during HTTP shutdown")
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if err := conn.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("Error during database disconnection")
		errs = append(errs, err)
	} else {
		a.log.Info().Msg("Database connection closed through app termination")
	}
	if len(errs) > 0 {
		return fail(StageShutdown, errors.Join(errs...))
	}
	return Outcome{Code: 0}
}

func (a *App) closeDatabase(conn *database.Connector) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	if err := conn.Close(ctx); err != nil {
		a.log.Error().Err(err).Msg("Error during database disconnection")
	}
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return a.cfg.ShutdownTimeout
}
