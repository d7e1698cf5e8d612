// Package mongostore is the MongoDB backend, selected by mongodb:// and
// mongodb+srv:// URIs.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dharsanguruparan/booktracker/internal/config"
	"github.com/dharsanguruparan/booktracker/internal/database"
	"github.com/dharsanguruparan/booktracker/internal/store"
)

const (
	defaultDatabase = "booktracker"
	usersCollection = "users"
	booksCollection = "books"

	// Server error codes reported for bad credentials: 18 by mongod, 8000 by
	// Atlas.
	codeAuthenticationFailed = 18
	codeAtlasAuthFailed      = 8000
)

// Backend wraps a mongo.Client. The typed stores resolve their collection on
// every call, so handlers that run before Connect finishes get
// database.ErrNotConnected instead of a nil dereference.
type Backend struct {
	uri    string
	dbName string
	opts   database.Options

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// New prepares a Backend. Nothing is dialed, and no SRV lookup happens, until
// Connect.
func New(uri string, opts database.Options) (*Backend, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	scheme = strings.ToLower(scheme)
	if !ok || (scheme != "mongodb" && scheme != "mongodb+srv") {
		// Only the scheme is echoed; the rest may hold a password.
		return nil, fmt.Errorf("not a mongodb uri: scheme %q", scheme)
	}
	// The driver only accepts a lower-case scheme.
	uri = scheme + "://" + rest
	name := databaseName(uri)
	if name == "" {
		name = defaultDatabase
	}
	return &Backend{uri: uri, dbName: name, opts: opts}, nil
}

// databaseName extracts the path segment of a connection string. Multi-host
// seed lists are not valid net/url hosts, so the string is cut by hand.
func databaseName(uri string) string {
	_, rest, _ := strings.Cut(config.StripUserinfo(uri), "://")
	rest, _, _ = strings.Cut(rest, "?")
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	return path
}

// Database is the name of the database the stores use.
func (b *Backend) Database() string {
	return b.dbName
}

// Connect dials, pings the primary and ensures indexes. Server and pool
// monitors are attached so later connectivity changes reach events.
func (b *Backend) Connect(ctx context.Context, events database.Sink) error {
	mon := &monitor{events: events}
	clientOpts := options.Client().
		ApplyURI(b.uri).
		SetServerMonitor(mon.serverMonitor()).
		SetPoolMonitor(mon.poolMonitor())
	if b.opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(b.opts.ServerSelectionTimeout)
	}
	if b.opts.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(b.opts.SocketTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", translate(err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return fmt.Errorf("ping mongodb: %w", translate(err))
	}
	db := client.Database(b.dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return err
	}

	b.mu.Lock()
	b.client = client
	b.db = db
	b.mu.Unlock()
	mon.armed.Store(true)
	return nil
}

// Disconnect closes the client. It is a no-op when Connect never succeeded.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.db = nil
	b.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (b *Backend) Users() store.Users { return &users{b: b} }
func (b *Backend) Books() store.Books { return &books{b: b} }

func (b *Backend) collection(name string) (*mongo.Collection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, database.ErrNotConnected
	}
	return b.db.Collection(name), nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("ensure users index: %w", err)
	}
	_, err = db.Collection(booksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("ensure books index: %w", err)
	}
	return nil
}

// monitor turns driver SDAM and pool events into connector events. It stays
// silent until armed so the initial connect reports through its return value
// only.
type monitor struct {
	events database.Sink
	armed  atomic.Bool
	lost   atomic.Bool
}

func (m *monitor) serverMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			if !m.armed.Load() {
				return
			}
			m.events.Notify(database.EventError, translate(e.Failure))
		},
		ServerHeartbeatSucceeded: func(*event.ServerHeartbeatSucceededEvent) {
			if m.armed.Load() && m.lost.CompareAndSwap(true, false) {
				m.events.Notify(database.EventConnected, nil)
			}
		},
	}
}

func (m *monitor) poolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			if e.Type != event.PoolCleared || !m.armed.Load() {
				return
			}
			if m.lost.CompareAndSwap(false, true) {
				m.events.Notify(database.EventDisconnected, nil)
			}
		},
	}
}

// translate marks credential failures with database.ErrAuthentication.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeAuthenticationFailed) || se.HasErrorCode(codeAtlasAuthFailed)) {
		return fmt.Errorf("%w: %v", database.ErrAuthentication, err)
	}
	// Handshake failures arrive as connection errors carrying only text.
	msg := err.Error()
	if strings.Contains(msg, "AuthenticationFailed") || strings.Contains(msg, "bad auth") {
		return fmt.Errorf("%w: %v", database.ErrAuthentication, err)
	}
	return err
}
