package autosave

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-builder/internal/builder"
	"wedding-builder/internal/models"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due callbacks on the calling goroutine
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeSession struct {
	mu   sync.Mutex
	auth bool
}

func (s *fakeSession) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

type mockPersister struct {
	mu      sync.Mutex
	creates int
	updates int

	saveFn func(ctx context.Context) error
}

func (m *mockPersister) CreateInvitation(ctx context.Context, in models.InvitationInput) (*models.Invitation, error) {
	m.mu.Lock()
	m.creates++
	m.mu.Unlock()
	if m.saveFn != nil {
		if err := m.saveFn(ctx); err != nil {
			return nil, err
		}
	}
	return &models.Invitation{ID: "inv-1", InvitationInput: in}, nil
}

func (m *mockPersister) UpdateInvitation(ctx context.Context, id string, in models.InvitationInput) (*models.Invitation, error) {
	m.mu.Lock()
	m.updates++
	m.mu.Unlock()
	if m.saveFn != nil {
		if err := m.saveFn(ctx); err != nil {
			return nil, err
		}
	}
	return &models.Invitation{ID: id, InvitationInput: in}, nil
}

func (m *mockPersister) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates + m.updates
}

type harness struct {
	store     *builder.Store
	clock     *fakeClock
	session   *fakeSession
	persister *mockPersister
	sync      *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     &fakeClock{},
		session:   &fakeSession{auth: true},
		persister: &mockPersister{},
	}
	h.store = builder.NewStore(h.persister, zerolog.Nop())
	h.sync = New(h.store, h.session, zerolog.Nop(), WithClock(h.clock), WithQuietPeriod(2*time.Second))
	t.Cleanup(h.sync.Close)
	return h
}

func (h *harness) fillMinimum(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.SetPlan(models.PlanBasis))
	h.store.SetTemplate("classic-elegance")
	h.store.SetPartnerNames("Anna", "Ben")
	require.NoError(t, h.store.SetWeddingDate("2026-09-12"))
}

func TestCoordinator_CoalescesBurst(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillMinimum(t)
	for i := 0; i < 5; i++ {
		h.clock.Advance(500 * time.Millisecond)
		h.store.SetHeadline("draft headline")
	}
	assert.Equal(t, Pending, h.sync.Status().State)
	assert.Equal(t, 1, h.clock.Armed())

	h.clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, h.persister.saves())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, h.persister.saves())

	st := h.sync.Status()
	assert.Equal(t, Idle, st.State)
	assert.False(t, st.IsDirty)
	assert.NotNil(t, st.LastSaved)
}

func TestCoordinator_SpacedEditsSaveEach(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillMinimum(t)
	h.clock.Advance(2 * time.Second)

	h.store.SetHeadline("one")
	h.clock.Advance(2 * time.Second)
	h.store.SetHeadline("two")
	h.clock.Advance(2 * time.Second)

	assert.Equal(t, 1, h.persister.creates)
	assert.Equal(t, 2, h.persister.updates)
}

func TestCoordinator_DoesNotScheduleWhenNotQualified(t *testing.T) {
	t.Parallel()

	t.Run("signed out", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.session.auth = false
		h.fillMinimum(t)
		h.clock.Advance(time.Minute)

		assert.Equal(t, 0, h.persister.saves())
		st := h.sync.Status()
		assert.Equal(t, Idle, st.State)
		assert.False(t, st.IsAuthenticated)
		assert.True(t, st.IsDirty)
	})

	t.Run("incomplete", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.store.SetTemplate("classic-elegance")
		h.store.SetPartnerNames("Anna", "")
		h.clock.Advance(time.Minute)

		assert.Equal(t, 0, h.persister.saves())
		assert.Equal(t, 0, h.clock.Armed())
	})
}

func TestCoordinator_ForceSaveCancelsTimer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillMinimum(t)
	require.Equal(t, 1, h.clock.Armed())

	require.NoError(t, h.sync.ForceSave(context.Background()))
	assert.Equal(t, 1, h.persister.saves())
	assert.Equal(t, 0, h.clock.Armed())

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.persister.saves())
	assert.False(t, h.sync.IsDirty())
}

func TestCoordinator_ForceSaveRejects(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.SetTemplate("classic-elegance")
	assert.ErrorIs(t, h.sync.ForceSave(context.Background()), ErrIncomplete)

	h.fillMinimum(t)
	h.session.mu.Lock()
	h.session.auth = false
	h.session.mu.Unlock()
	assert.ErrorIs(t, h.sync.ForceSave(context.Background()), ErrNotAuthenticated)
	assert.Equal(t, 0, h.persister.saves())
}

func TestCoordinator_FailureWaitsForNextEdit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	boom := errors.New("server down")
	h.persister.saveFn = func(context.Context) error { return boom }
	h.fillMinimum(t)

	h.clock.Advance(2 * time.Second)
	require.Equal(t, 1, h.persister.saves())

	st := h.sync.Status()
	assert.True(t, st.IsDirty)
	assert.Equal(t, 1, st.Failures)
	assert.ErrorIs(t, st.LastError, boom)
	assert.Equal(t, Idle, st.State)

	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, h.persister.saves())

	h.persister.saveFn = nil
	h.store.SetHeadline("retry please")
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 2, h.persister.saves())

	st = h.sync.Status()
	assert.False(t, st.IsDirty)
	assert.Zero(t, st.Failures)
	assert.NoError(t, st.LastError)
}

func TestCoordinator_EditDuringSaveSchedulesFollowUp(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.persister.saveFn = func(context.Context) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}
	h.fillMinimum(t)

	fired := make(chan struct{})
	go func() {
		h.clock.Advance(2 * time.Second)
		close(fired)
	}()
	<-started

	h.store.SetHeadline("typed while saving")
	assert.Equal(t, Saving, h.sync.Status().State)
	assert.Equal(t, 0, h.clock.Armed(), "no timer while a save is in flight")

	close(release)
	<-fired

	assert.True(t, h.sync.IsDirty())
	assert.Equal(t, Pending, h.sync.Status().State)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, h.persister.creates)
	assert.Equal(t, 1, h.persister.updates)
	assert.False(t, h.sync.IsDirty())
	assert.Equal(t, "typed while saving", h.store.Snapshot().Headline)
}

func TestCoordinator_ForceSaveWaitsForInFlightSave(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.persister.saveFn = func(context.Context) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}
	h.fillMinimum(t)

	go h.clock.Advance(2 * time.Second)
	<-started

	forced := make(chan error, 1)
	go func() { forced <- h.sync.ForceSave(context.Background()) }()

	select {
	case err := <-forced:
		t.Fatalf("ForceSave returned before the running save finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-forced)
	assert.Equal(t, 1, h.persister.creates)
	assert.Equal(t, 1, h.persister.updates)
}

func TestCoordinator_ForceSaveHonoursContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.persister.saveFn = func(context.Context) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}
	h.fillMinimum(t)

	fired := make(chan struct{})
	go func() {
		h.clock.Advance(2 * time.Second)
		close(fired)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.sync.ForceSave(ctx), context.Canceled)

	close(release)
	<-fired
	assert.Equal(t, 1, h.persister.saves())
}

func TestCoordinator_LoadCancelsPendingSave(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillMinimum(t)
	require.Equal(t, Pending, h.sync.Status().State)

	h.store.LoadFromDatabase(&models.Invitation{ID: "inv-7"})
	assert.Equal(t, Idle, h.sync.Status().State)

	h.clock.Advance(time.Minute)
	assert.Equal(t, 0, h.persister.saves())
}

func TestCoordinator_Close(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fillMinimum(t)
	h.sync.Close()

	h.clock.Advance(time.Minute)
	assert.Equal(t, 0, h.persister.saves())
	assert.ErrorIs(t, h.sync.ForceSave(context.Background()), ErrClosed)

	h.store.SetHeadline("after close")
	assert.Equal(t, 0, h.clock.Armed())
}

type memMirror struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memMirror) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memMirror) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memMirror) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func TestCoordinator_RestoredDirtyDraftIsSaved(t *testing.T) {
	t.Parallel()

	mirror := &memMirror{values: make(map[string][]byte)}
	data, err := builder.EncodeDraft(models.Draft{
		SelectedPlan: models.PlanPremium,
		TemplateID:   "garden-romance",
		Partner1Name: "Anna",
		Partner2Name: "Ben",
		WeddingDate:  "2026-09-12",
		IsDirty:      true,
	})
	require.NoError(t, err)
	require.NoError(t, mirror.Put(builder.MirrorKey, data))

	clock := &fakeClock{}
	persister := &mockPersister{}
	store := builder.NewStore(persister, zerolog.Nop(), builder.WithMirror(mirror))
	coordinator := New(store, &fakeSession{auth: true}, zerolog.Nop(), WithClock(clock))
	defer coordinator.Close()

	require.True(t, store.Restore())
	clock.Advance(DefaultQuietPeriod)

	assert.Equal(t, 1, persister.creates)
	assert.Equal(t, "inv-1", store.Snapshot().InvitationID)
}

func TestCoordinator_DraftRestoredBeforeNewIsSaved(t *testing.T) {
	t.Parallel()

	mirror := &memMirror{values: make(map[string][]byte)}
	data, err := builder.EncodeDraft(models.Draft{
		SelectedPlan: models.PlanBasis,
		TemplateID:   "modern-minimal",
		Partner1Name: "Anna",
		Partner2Name: "Ben",
		WeddingDate:  "2026-09-12",
		IsDirty:      true,
	})
	require.NoError(t, err)
	require.NoError(t, mirror.Put(builder.MirrorKey, data))

	clock := &fakeClock{}
	persister := &mockPersister{}
	store := builder.NewStore(persister, zerolog.Nop(), builder.WithMirror(mirror))
	require.True(t, store.Restore())

	coordinator := New(store, &fakeSession{auth: true}, zerolog.Nop(), WithClock(clock))
	defer coordinator.Close()
	assert.Equal(t, 1, clock.Armed())

	clock.Advance(DefaultQuietPeriod)

	assert.Equal(t, 1, persister.saves())
	d := store.Snapshot()
	assert.False(t, d.IsDirty)
	assert.Equal(t, "inv-1", d.InvitationID)
}

func TestCoordinator_SessionChanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.session.mu.Lock()
	h.session.auth = false
	h.session.mu.Unlock()

	h.fillMinimum(t)
	h.clock.Advance(time.Minute)
	require.Equal(t, 0, h.persister.saves())

	h.session.mu.Lock()
	h.session.auth = true
	h.session.mu.Unlock()
	h.sync.SessionChanged()
	assert.Equal(t, Pending, h.sync.Status().State)

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, h.persister.saves())
	assert.False(t, h.store.IsDirty())

	// signing out drops a pending save
	h.store.SetHeadline("offline edit")
	require.Equal(t, Pending, h.sync.Status().State)
	h.session.mu.Lock()
	h.session.auth = false
	h.session.mu.Unlock()
	h.sync.SessionChanged()

	h.clock.Advance(time.Minute)
	assert.Equal(t, 1, h.persister.saves())
	assert.Equal(t, Idle, h.sync.Status().State)
}
