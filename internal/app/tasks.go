package app

import (
	"context"

	"github.com/dharsanguruparan/booktracker/internal/auth"
	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store"
	"github.com/dharsanguruparan/booktracker/internal/users"
)

// connect opens the backend and waits for the initial connection. The
// returned close func is bounded by ShutdownTimeout.
func (a *App) connect(ctx context.Context) (store.Backend, func() error, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := a.open(a.cfg.DatabaseURI, a.dbOptions())
	if err != nil {
		return nil, nil, err
	}
	conn := database.NewConnector(db, a.cfg.DatabaseURI, a.log)
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, err
	}
	closeFn := func() error {
		cctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return conn.Close(cctx)
	}
	return db, closeFn, nil
}

// CheckDB connects once and disconnects, reporting whether the configured
// database is reachable with the configured credentials.
func (a *App) CheckDB(ctx context.Context) error {
	_, closeFn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	return closeFn()
}

// CreateAdmin runs the admin bootstrap directly against the database.
func (a *App) CreateAdmin(ctx context.Context) (created *users.AdminCreated, err error) {
	db, closeFn, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	signer := auth.NewSigner([]byte(a.cfg.JWTSecret), a.cfg.TokenTTL)
	return users.NewService(db.Users(), signer).CreateAdmin(ctx, a.adminAccount())
}
