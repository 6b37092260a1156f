package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-builder/internal/builder"
	"wedding-builder/internal/models"
)

// DefaultQuietPeriod is how long the draft must stay untouched before it is saved
const DefaultQuietPeriod = 2 * time.Second

var (
	// ErrClosed is returned by ForceSave after Close
	ErrClosed = errors.New("autosave coordinator closed")
	// ErrNotAuthenticated is returned by ForceSave without a signed-in user
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrIncomplete is returned by ForceSave when the draft lacks template, names or date
	ErrIncomplete = errors.New("draft is missing required fields")
)

// DraftStore is the part of builder.Store the coordinator drives
type DraftStore interface {
	Snapshot() models.Draft
	SaveToDatabase(ctx context.Context) error
	Subscribe(l builder.Listener) func()
}

// Session tells whether a user is signed in
type Session interface {
	IsAuthenticated() bool
}

// State is the coordinator's position in its idle → pending → saving cycle
type State int

const (
	Idle State = iota
	Pending
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	}
	return "unknown"
}

// Status is a read-only view for save indicators
type Status struct {
	State           State
	IsAuthenticated bool
	IsDirty         bool
	IsSaving        bool
	LastSaved       *time.Time
	Failures        int
	LastError       error
}

// Coordinator turns draft changes into debounced saves. Every qualifying
// change restarts a single quiet-period timer; when it fires exactly one
// save runs. A failed save leaves the draft dirty until the next edit or
// ForceSave.
type Coordinator struct {
	store   DraftStore
	session Session
	clock   Clock
	quiet   time.Duration
	ctx     context.Context
	log     zerolog.Logger

	mu    sync.Mutex
	state State
	timer Timer
	// gen identifies the armed timer; callbacks from superseded timers are ignored
	gen uint64
	// followUp records a change seen while a save was in flight
	followUp bool
	done     chan struct{}
	closed   bool

	failures int
	lastErr  error

	unsubscribe func()
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithQuietPeriod overrides DefaultQuietPeriod
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Coordinator) { c.quiet = d }
}

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithContext sets the context timer-triggered saves run with
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) { c.ctx = ctx }
}

// New starts watching store
func New(store DraftStore, session Session, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		session: session,
		clock:   WallClock(),
		quiet:   DefaultQuietPeriod,
		ctx:     context.Background(),
		log:     logger.With().Str("component", "Autosave").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = store.Subscribe(c.onChange)

	// a draft restored before New may already be due for a save
	c.mu.Lock()
	c.scheduleLocked()
	c.mu.Unlock()
	return c
}

// SessionChanged re-evaluates the draft after the user signs in or out
func (c *Coordinator) SessionChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.IsAuthenticated() {
		c.scheduleLocked()
		return
	}
	if c.state == Pending {
		c.cancelTimerLocked()
	}
}

func (c *Coordinator) onChange(ch builder.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch.Kind {
	case builder.Mutated, builder.Restored:
		c.scheduleLocked()
	case builder.Saved, builder.SaveFailed:
		// a save someone else started has finished
		if c.state != Saving && c.followUp {
			c.followUp = false
			c.scheduleLocked()
		}
	case builder.Loaded, builder.Cleared:
		if c.state == Pending {
			c.cancelTimerLocked()
		}
	}
}

// scheduleLocked arms the timer for the current draft, or remembers the
// change when a save is in flight
func (c *Coordinator) scheduleLocked() {
	if c.closed {
		return
	}
	if c.state == Saving {
		c.followUp = true
		return
	}
	d := c.store.Snapshot()
	if d.IsSaving {
		c.followUp = true
		return
	}
	if !c.qualifies(d) {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.state = Pending
	c.timer = c.clock.AfterFunc(c.quiet, func() { c.fire(gen) })
}

func (c *Coordinator) qualifies(d models.Draft) bool {
	return d.IsDirty && !d.IsSaving && c.session.IsAuthenticated() && d.MeetsMinimum()
}

func (c *Coordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	if c.state == Pending {
		c.state = Idle
	}
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.state != Pending {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if !c.qualifies(c.store.Snapshot()) {
		c.state = Idle
		c.mu.Unlock()
		return
	}
	c.beginSaveLocked()
	c.mu.Unlock()

	if err := c.runSave(c.ctx); err != nil {
		c.log.Warn().Err(err).Msg("Autosave failed, draft stays dirty")
	}
}

func (c *Coordinator) beginSaveLocked() {
	c.state = Saving
	c.done = make(chan struct{})
}

func (c *Coordinator) runSave(ctx context.Context) error {
	err := c.store.SaveToDatabase(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Idle
	close(c.done)
	c.done = nil

	switch {
	case err == nil:
		c.failures = 0
		c.lastErr = nil
	case errors.Is(err, builder.ErrSaveInProgress):
		// someone else is saving; pick up after their Saved/SaveFailed
		c.followUp = true
		if c.store.Snapshot().IsSaving {
			return err
		}
	default:
		c.failures++
		c.lastErr = err
	}

	if c.followUp {
		c.followUp = false
		c.scheduleLocked()
	}
	return err
}

// ForceSave cancels any pending timer and saves now, waiting for an in-flight
// save to finish first.
func (c *Coordinator) ForceSave(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelTimerLocked()

	for c.state == Saving {
		done := c.done
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
	}
	// the finished save may have armed a follow-up; this save covers it
	c.cancelTimerLocked()
	c.followUp = false

	if !c.session.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if d := c.store.Snapshot(); !d.MeetsMinimum() {
		c.mu.Unlock()
		return ErrIncomplete
	}
	c.beginSaveLocked()
	c.mu.Unlock()

	return c.runSave(ctx)
}

// Status reports the current save state
func (c *Coordinator) Status() Status {
	d := c.store.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:           c.state,
		IsAuthenticated: c.session.IsAuthenticated(),
		IsDirty:         d.IsDirty,
		IsSaving:        d.IsSaving,
		LastSaved:       d.LastSaved,
		Failures:        c.failures,
		LastError:       c.lastErr,
	}
}

// IsAuthenticated reports whether saves can happen at all
func (c *Coordinator) IsAuthenticated() bool { return c.session.IsAuthenticated() }

// IsDirty reports whether the draft has unsaved changes
func (c *Coordinator) IsDirty() bool { return c.store.Snapshot().IsDirty }

// IsSaving reports whether a save is in flight
func (c *Coordinator) IsSaving() bool { return c.store.Snapshot().IsSaving }

// Close stops watching the store and cancels a pending save. A save already
// in flight is left to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelTimerLocked()
	c.mu.Unlock()

	c.unsubscribe()
}
