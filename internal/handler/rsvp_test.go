package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-builder/internal/models"
	"wedding-builder/internal/repository"
)

type sentMessage struct {
	phone string
	text  string
}

type mockMessenger struct {
	sent []sentMessage
	err  error
}

func (m *mockMessenger) SendMessage(_ context.Context, phoneNumber, message string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{phone: phoneNumber, text: message})
	return nil
}

type mockGuestStore struct {
	guests      map[string]models.Guest
	invitations map[string]*models.Invitation
}

func newMockGuestStore(invitations ...*models.Invitation) *mockGuestStore {
	s := &mockGuestStore{
		guests:      make(map[string]models.Guest),
		invitations: make(map[string]*models.Invitation),
	}
	for _, inv := range invitations {
		s.invitations[inv.ID] = inv
	}
	return s
}

func (m *mockGuestStore) AddGuest(_ context.Context, guest models.Guest) error {
	m.guests[guest.PhoneNumber] = guest
	return nil
}

func (m *mockGuestStore) FindGuestByPhone(_ context.Context, phoneNumber string) (*models.Guest, error) {
	g, ok := m.guests[phoneNumber]
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", phoneNumber, repository.ErrNotFound)
	}
	return &g, nil
}

func (m *mockGuestStore) UpdateGuestRSVP(_ context.Context, invitationID, phoneNumber string, status models.RSVPStatus, notes string) error {
	g, ok := m.guests[phoneNumber]
	if !ok || g.InvitationID != invitationID {
		return repository.ErrNotFound
	}
	g.RSVPStatus = status
	m.guests[phoneNumber] = g
	return nil
}

func (m *mockGuestStore) GetInvitation(_ context.Context, id string) (*models.Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return inv, nil
}

func testNormalize(phone string) string {
	return strings.TrimPrefix(strings.ReplaceAll(phone, "-", ""), "+")
}

func publishedInvitation(deadline string) *models.Invitation {
	return &models.Invitation{
		ID:     "inv-1",
		Status: models.StatusPublished,
		InvitationInput: models.InvitationInput{
			Partner1Name: "Anna",
			Partner2Name: "Ben",
			WeddingDate:  "2026-09-12",
			WeddingTime:  "16:00",
			Locations:    []models.Location{{Name: "Chapel", Address: "Main St 1"}},
			RSVPConfig:   models.RSVPConfig{Enabled: true, Deadline: deadline},
		},
	}
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		status models.RSVPStatus
		ok     bool
	}{
		{"Yes", models.RSVPAccepted, true},
		{"yes!! we'll be there", models.RSVPAccepted, true},
		{"✅", models.RSVPAccepted, true},
		{"Count us in, we're coming", models.RSVPAccepted, true},
		{"no", models.RSVPDeclined, true},
		{"Sorry, not coming", models.RSVPDeclined, true},
		{"we can't make it", models.RSVPDeclined, true},
		{"❌", models.RSVPDeclined, true},
		{"know what, I'll think", "", false},
		{"nobody told me", "", false},
		{"", "", false},
		{"what time does it start?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			status, ok := ParseReply(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestSendInvitation(t *testing.T) {
	t.Parallel()

	messenger := &mockMessenger{}
	store := newMockGuestStore(publishedInvitation("2026-08-01"))
	h := NewRSVPHandler(messenger, store, "https://example.com/i/", testNormalize, zerolog.Nop())

	require.NoError(t, h.SendInvitation(context.Background(), "inv-1", "+972-50-1234567", "Cleo"))

	guest, ok := store.guests["972501234567"]
	require.True(t, ok)
	assert.Equal(t, "Cleo", guest.Name)
	assert.Equal(t, models.RSVPPending, guest.RSVPStatus)

	require.Len(t, messenger.sent, 1)
	msg := messenger.sent[0]
	assert.Equal(t, "972501234567", msg.phone)
	assert.Contains(t, msg.text, "Dear Cleo")
	assert.Contains(t, msg.text, "*Anna* & *Ben*")
	assert.Contains(t, msg.text, "Saturday, September 12, 2026 16:00")
	assert.Contains(t, msg.text, "Chapel, Main St 1")
	assert.Contains(t, msg.text, "https://example.com/i/inv-1")
	assert.Contains(t, msg.text, "Saturday, August 1, 2026")
}

func TestSendInvitation_RequiresPublished(t *testing.T) {
	t.Parallel()

	draft := publishedInvitation("")
	draft.Status = models.StatusDraft
	messenger := &mockMessenger{}
	store := newMockGuestStore(draft)
	h := NewRSVPHandler(messenger, store, "", testNormalize, zerolog.Nop())

	assert.Error(t, h.SendInvitation(context.Background(), "inv-1", "972501234567", "Cleo"))
	assert.Empty(t, messenger.sent)
	assert.Empty(t, store.guests)
}

func TestHandleReply(t *testing.T) {
	t.Parallel()

	setup := func(deadline string) (*RSVPHandler, *mockMessenger, *mockGuestStore) {
		messenger := &mockMessenger{}
		store := newMockGuestStore(publishedInvitation(deadline))
		store.guests["972501234567"] = models.Guest{
			InvitationID: "inv-1",
			PhoneNumber:  "972501234567",
			Name:         "Cleo",
			RSVPStatus:   models.RSVPPending,
		}
		return NewRSVPHandler(messenger, store, "", testNormalize, zerolog.Nop()), messenger, store
	}

	t.Run("accept", func(t *testing.T) {
		t.Parallel()
		h, messenger, store := setup("2099-01-01")
		require.NoError(t, h.HandleReply(context.Background(), "972501234567", "Yes!"))
		assert.Equal(t, models.RSVPAccepted, store.guests["972501234567"].RSVPStatus)
		require.Len(t, messenger.sent, 1)
		assert.Contains(t, messenger.sent[0].text, "Wonderful")
	})

	t.Run("decline", func(t *testing.T) {
		t.Parallel()
		h, messenger, store := setup("")
		require.NoError(t, h.HandleReply(context.Background(), "972501234567", "sorry, not coming"))
		assert.Equal(t, models.RSVPDeclined, store.guests["972501234567"].RSVPStatus)
		require.Len(t, messenger.sent, 1)
		assert.Contains(t, messenger.sent[0].text, "We'll miss you")
	})

	t.Run("unknown sender", func(t *testing.T) {
		t.Parallel()
		h, messenger, _ := setup("")
		require.NoError(t, h.HandleReply(context.Background(), "15550001111", "yes"))
		assert.Empty(t, messenger.sent)
	})

	t.Run("unclear", func(t *testing.T) {
		t.Parallel()
		h, messenger, store := setup("")
		require.NoError(t, h.HandleReply(context.Background(), "972501234567", "where do we park?"))
		assert.Empty(t, messenger.sent)
		assert.Equal(t, models.RSVPPending, store.guests["972501234567"].RSVPStatus)
	})

	t.Run("after deadline", func(t *testing.T) {
		t.Parallel()
		h, messenger, store := setup("2000-01-01")
		require.NoError(t, h.HandleReply(context.Background(), "972501234567", "yes"))
		assert.Equal(t, models.RSVPPending, store.guests["972501234567"].RSVPStatus)
		require.Len(t, messenger.sent, 1)
		assert.Contains(t, messenger.sent[0].text, "deadline has passed")
	})

	t.Run("confirmation failure", func(t *testing.T) {
		t.Parallel()
		h, messenger, store := setup("")
		messenger.err = errors.New("offline")
		err := h.HandleReply(context.Background(), "972501234567", "yes")
		assert.Error(t, err)
		assert.Equal(t, models.RSVPAccepted, store.guests["972501234567"].RSVPStatus)
	})
}
