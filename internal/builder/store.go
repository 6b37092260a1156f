package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-builder/internal/models"
)

var (
	// ErrSaveInProgress is returned when a save is requested while another one is in flight
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrNoPersister is returned by SaveToDatabase on a store built without a persister
	ErrNoPersister = errors.New("no persister configured")
	// ErrMissingID is returned when the server accepts a create without assigning an id
	ErrMissingID = errors.New("server returned no invitation id")
)

// Persister writes invitations to the server
type Persister interface {
	CreateInvitation(ctx context.Context, in models.InvitationInput) (*models.Invitation, error)
	UpdateInvitation(ctx context.Context, id string, in models.InvitationInput) (*models.Invitation, error)
}

// ChangeKind tells subscribers what happened to the draft
type ChangeKind int

const (
	Mutated ChangeKind = iota
	Restored
	Loaded
	SaveStarted
	Saved
	SaveFailed
	Cleared
)

func (k ChangeKind) String() string {
	switch k {
	case Mutated:
		return "mutated"
	case Restored:
		return "restored"
	case Loaded:
		return "loaded"
	case SaveStarted:
		return "save_started"
	case Saved:
		return "saved"
	case SaveFailed:
		return "save_failed"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// Change is delivered to subscribers after every state transition
type Change struct {
	Kind  ChangeKind
	Field Field
	Draft models.Draft
}

// Listener receives store changes. It is called outside the store lock and
// may call back into the store.
type Listener func(Change)

// Store owns the in-progress invitation. All writes go through its methods;
// readers get copies.
type Store struct {
	mu    sync.Mutex
	draft models.Draft
	// revision counts field mutations; epoch counts wholesale replacements
	// (load, clear) so an in-flight save can tell its draft is gone.
	revision uint64
	epoch    uint64
	seq      uint64

	persister Persister
	mirror    Mirror
	mirrorMu  sync.Mutex
	mirrorSeq uint64

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int

	now func() time.Time
	log zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithMirror keeps a local copy of the draft in m
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithNow overrides the clock used for lastSaved
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty draft store
func NewStore(persister Persister, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		subs:      make(map[int]Listener),
		now:       time.Now,
		log:       logger.With().Str("component", "DraftStore").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current draft
func (s *Store) Snapshot() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Revision returns the number of mutations applied so far
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// IsDirty reports whether the draft has unsaved mutations
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.IsDirty
}

// IsSaving reports whether a save request is in flight
func (s *Store) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.IsSaving
}

// Subscribe registers l and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = l
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subMu.Unlock()

	for _, l := range listeners {
		l(c)
	}
}

// mutate applies fn to the draft and marks it dirty. The dirty flag is set
// even when fn leaves the value unchanged.
func (s *Store) mutate(field Field, fn func(d *models.Draft)) {
	s.mu.Lock()
	fn(&s.draft)
	s.draft.IsDirty = true
	s.revision++
	s.seq++
	seq := s.seq
	snap := s.draft.Clone()
	s.mu.Unlock()

	s.writeMirror(seq, snap)
	s.notify(Change{Kind: Mutated, Field: field, Draft: snap})
}

// LoadFromDatabase replaces the draft with a server record. The result is
// clean and stamped as saved now.
func (s *Store) LoadFromDatabase(inv *models.Invitation) {
	d := inv.Draft()
	now := s.now()

	s.mu.Lock()
	d.IsSaving = s.draft.IsSaving
	d.IsDirty = false
	d.LastSaved = &now
	s.draft = d
	s.epoch++
	s.seq++
	seq := s.seq
	snap := s.draft.Clone()
	s.mu.Unlock()

	s.log.Debug().Str("invitation_id", inv.ID).Msg("Loaded draft from server")
	s.writeMirror(seq, snap)
	s.notify(Change{Kind: Loaded, Draft: snap})
}

// Clear discards the draft and its local copy
func (s *Store) Clear() {
	s.mu.Lock()
	s.draft = models.Draft{IsSaving: s.draft.IsSaving}
	s.epoch++
	s.seq++
	seq := s.seq
	snap := s.draft.Clone()
	s.mu.Unlock()

	s.clearMirror(seq)
	s.notify(Change{Kind: Cleared, Draft: snap})
}

// SaveToDatabase sends the current draft to the server. Only one save runs at
// a time; a concurrent call returns ErrSaveInProgress without doing anything.
// Mutations made while the request is in flight keep the draft dirty.
func (s *Store) SaveToDatabase(ctx context.Context) error {
	if s.persister == nil {
		return ErrNoPersister
	}

	s.mu.Lock()
	if s.draft.IsSaving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	s.draft.IsSaving = true
	revision := s.revision
	epoch := s.epoch
	id := s.draft.InvitationID
	input := s.draft.Input()
	snap := s.draft.Clone()
	s.mu.Unlock()

	s.notify(Change{Kind: SaveStarted, Draft: snap})

	var (
		inv *models.Invitation
		err error
	)
	if id == "" {
		inv, err = s.persister.CreateInvitation(ctx, input)
		if err == nil && (inv == nil || inv.ID == "") {
			err = ErrMissingID
		}
	} else {
		inv, err = s.persister.UpdateInvitation(ctx, id, input)
	}

	s.mu.Lock()
	s.draft.IsSaving = false
	stale := s.epoch != epoch
	if err != nil {
		if !stale {
			s.draft.IsDirty = true
		}
		snap = s.draft.Clone()
		s.mu.Unlock()

		s.log.Error().Err(err).Str("invitation_id", id).Msg("Failed to save draft")
		s.notify(Change{Kind: SaveFailed, Draft: snap})
		return fmt.Errorf("failed to save invitation: %w", err)
	}
	if !stale {
		if s.draft.InvitationID == "" && inv != nil {
			s.draft.InvitationID = inv.ID
		}
		now := s.now()
		s.draft.LastSaved = &now
		s.draft.IsDirty = s.revision != revision
	}
	s.seq++
	seq := s.seq
	snap = s.draft.Clone()
	s.mu.Unlock()

	s.log.Debug().Str("invitation_id", snap.InvitationID).Bool("dirty", snap.IsDirty).Msg("Saved draft")
	s.writeMirror(seq, snap)
	s.notify(Change{Kind: Saved, Draft: snap})
	return nil
}
