// Package database supervises the process's single database connection: one
// Connect per process, lifecycle events pushed by the driver, and a bounded
// Close on shutdown. It knows nothing about what is stored.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/booktracker/internal/config"
)

// State is the lifecycle position of the connection handle.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is a lifecycle notification emitted by a Driver after the initial
// connection succeeded.
type Event int

const (
	EventConnected Event = iota
	EventError
	EventDisconnected
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventError:
		return "error"
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	ErrMissingURI     = errors.New("database connection string is missing")
	ErrAlreadyStarted = errors.New("database connect already attempted")
	ErrNotConnected   = errors.New("database is not connected")

	// ErrAuthentication is wrapped by drivers around credential failures.
	ErrAuthentication = errors.New("database authentication failed")
)

// Options are the timeouts applied by drivers to the underlying client.
type Options struct {
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

// Sink receives lifecycle events from a driver.
type Sink interface {
	Notify(ev Event, err error)
}

// Driver is the backend-specific half of the connection: open, verify and
// close. Connect must not return until the server has answered at least once.
type Driver interface {
	Connect(ctx context.Context, events Sink) error
	Disconnect(ctx context.Context) error
}

// Observer is called for every event of the kind it was registered for. err
// is only set for EventError.
type Observer func(err error)

// Connector owns the connection handle for the life of the process.
type Connector struct {
	driver Driver
	uri    string
	log    zerolog.Logger

	mu        sync.Mutex
	state     State
	started   bool
	observers map[Event][]Observer
}

// NewConnector constructs a Connector for uri. Nothing is dialed until
// Connect.
func NewConnector(driver Driver, uri string, log zerolog.Logger) *Connector {
	c := &Connector{
		driver:    driver,
		uri:       uri,
		log:       log.With().Str("component", "database").Logger(),
		observers: make(map[Event][]Observer),
	}
	c.registerDefaultObservers()
	return c
}

// State returns the current lifecycle state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers an observer for ev.
func (c *Connector) On(ev Event, fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[ev] = append(c.observers[ev], fn)
}

// Connect performs the one and only connection attempt. There is no retry:
// a failure here is meant to stop the process.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.uri == "" {
		c.mu.Unlock()
		return ErrMissingURI
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.log.Info().Msg("Attempting to connect to database...")
	c.log.Info().Str("uri", config.RedactURI(c.uri)).Msg("Connecting to database")

	if err := c.driver.Connect(ctx, c); err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateUnconnected
		}
		c.mu.Unlock()
		return fmt.Errorf("initial connection: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Close won the race while the driver was dialing.
		c.mu.Unlock()
		_ = c.driver.Disconnect(context.WithoutCancel(ctx))
		return ErrNotConnected
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.log.Info().Msg("Database connected successfully")
	return nil
}

func (c *Connector) registerDefaultObservers() {
	c.On(EventConnected, func(error) {
		c.log.Info().Msg("Database connected")
	})
	c.On(EventError, func(err error) {
		c.log.Error().Err(err).Msg("Database connection error")
		if errors.Is(err, ErrAuthentication) {
			c.log.Error().Msg("Authentication failed. Please check your database credentials.")
			c.log.Error().Msg("Make sure the username and password in the connection string are correct.")
		}
	})
	c.On(EventDisconnected, func(error) {
		c.log.Warn().Msg("Database disconnected")
	})
}

// Notify applies a driver event to the state machine and fans it out to the
// registered observers. Events before the first successful connect or after
// Close are dropped.
func (c *Connector) Notify(ev Event, err error) {
	c.mu.Lock()
	switch c.state {
	case StateConnected, StateDisconnected:
	default:
		c.mu.Unlock()
		return
	}
	switch ev {
	case EventConnected:
		c.state = StateConnected
	case EventDisconnected:
		c.state = StateDisconnected
	}
	observers := append([]Observer(nil), c.observers[ev]...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(err)
	}
}

// Close releases the connection. The caller bounds the attempt through ctx.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	if err := c.driver.Disconnect(ctx); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
