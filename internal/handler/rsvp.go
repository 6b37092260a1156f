package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-builder/internal/models"
	"wedding-builder/internal/repository"
)

// Messenger sends text messages to a phone number
type Messenger interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// GuestStore keeps guests and their answers
type GuestStore interface {
	AddGuest(ctx context.Context, guest models.Guest) error
	FindGuestByPhone(ctx context.Context, phoneNumber string) (*models.Guest, error)
	UpdateGuestRSVP(ctx context.Context, invitationID, phoneNumber string, status models.RSVPStatus, notes string) error
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
}

type RSVPHandler struct {
	messenger Messenger
	store     GuestStore
	publicURL string
	normalize func(string) string
	log       zerolog.Logger
}

// NewRSVPHandler creates a new RSVP handler. publicURL is prefixed to the
// invitation id to build the link sent to guests.
func NewRSVPHandler(messenger Messenger, store GuestStore, publicURL string, normalize func(string) string, logger zerolog.Logger) *RSVPHandler {
	return &RSVPHandler{
		messenger: messenger,
		store:     store,
		publicURL: publicURL,
		normalize: normalize,
		log:       logger.With().Str("component", "RSVP").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages for RSVP responses
func (h *RSVPHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}

	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}

	phoneNumber := h.normalize(msg.Info.Sender.User)
	return h.HandleReply(context.Background(), phoneNumber, text)
}

// HandleReply records a yes/no answer from phoneNumber and confirms it.
// Messages from unknown numbers and unclear answers are ignored.
func (h *RSVPHandler) HandleReply(ctx context.Context, phoneNumber, text string) error {
	// only process RSVP if guest was previously invited
	guest, err := h.store.FindGuestByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up guest: %w", err)
	}

	status, ok := ParseReply(text)
	if !ok {
		h.log.Debug().Str("phone", phoneNumber).Msg("Ignoring unclear reply")
		return nil
	}

	inv, err := h.store.GetInvitation(ctx, guest.InvitationID)
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}
	if inv.RSVPConfig.DeadlinePassed(time.Now()) {
		return h.messenger.SendMessage(ctx, phoneNumber, "Thank you for your message. Unfortunately the reply deadline has passed, please contact the couple directly.")
	}

	if err := h.store.UpdateGuestRSVP(ctx, guest.InvitationID, phoneNumber, status, ""); err != nil {
		return fmt.Errorf("failed to update RSVP: %w", err)
	}
	h.log.Info().Str("phone", phoneNumber).Str("status", string(status)).Msg("RSVP recorded")

	if err := h.messenger.SendMessage(ctx, phoneNumber, confirmation(inv, status)); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

// SendInvitation sends a published invitation to a guest
func (h *RSVPHandler) SendInvitation(ctx context.Context, invitationID, phoneNumber, name string) error {
	inv, err := h.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}
	if !inv.Published() {
		return fmt.Errorf("invitation %s is not published yet", invitationID)
	}

	// store the normalized number so it matches incoming replies
	guest := models.Guest{
		InvitationID: inv.ID,
		PhoneNumber:  h.normalize(phoneNumber),
		Name:         name,
		RSVPStatus:   models.RSVPPending,
	}
	if err := h.store.AddGuest(ctx, guest); err != nil {
		return fmt.Errorf("failed to add guest: %w", err)
	}

	if err := h.messenger.SendMessage(ctx, guest.PhoneNumber, h.invitationText(inv, name)); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}
	return nil
}

func (h *RSVPHandler) invitationText(inv *models.Invitation, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 *Wedding Invitation*\n\nDear %s,\n\n", name)
	if inv.Headline != "" {
		fmt.Fprintf(&b, "%s\n\n", inv.Headline)
	}
	fmt.Fprintf(&b, "You are cordially invited to celebrate the wedding of\n\n*%s* & *%s*\n\n", inv.Partner1Name, inv.Partner2Name)
	fmt.Fprintf(&b, "📅 Date: %s", formatDate(inv.WeddingDate))
	if inv.WeddingTime != "" {
		fmt.Fprintf(&b, " %s", inv.WeddingTime)
	}
	b.WriteString("\n")
	if len(inv.Locations) > 0 {
		loc := inv.Locations[0]
		fmt.Fprintf(&b, "📍 Location: %s", loc.Name)
		if loc.Address != "" {
			fmt.Fprintf(&b, ", %s", loc.Address)
		}
		b.WriteString("\n")
	}
	if h.publicURL != "" {
		fmt.Fprintf(&b, "\n🔗 %s%s\n", h.publicURL, inv.ID)
	}
	if inv.RSVPConfig.Enabled {
		if inv.RSVPConfig.Deadline != "" {
			fmt.Fprintf(&b, "\nPlease reply before %s.", formatDate(inv.RSVPConfig.Deadline))
		}
		b.WriteString("\nReply with:\n✅ *YES* to accept\n❌ *NO* to decline")
	}
	return b.String()
}

func confirmation(inv *models.Invitation, status models.RSVPStatus) string {
	if status == models.RSVPAccepted {
		return fmt.Sprintf(
			"🎉 Wonderful! We're so excited to celebrate with you!\n\n"+
				"We've confirmed your attendance for the wedding of %s & %s on %s.\n\n"+
				"See you there! 💕",
			inv.Partner1Name, inv.Partner2Name, formatDate(inv.WeddingDate),
		)
	}
	return fmt.Sprintf(
		"Thank you for letting us know. We're sorry you won't be able to join us for the wedding of %s & %s.\n\n"+
			"We'll miss you! 💕",
		inv.Partner1Name, inv.Partner2Name,
	)
}

func formatDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

var (
	declinePhrases = []string{"not coming", "can't come", "cannot come", "won't come", "can't make it", "will not", "won't be"}
	declineWords   = []string{"no", "nope", "decline", "declining"}
	acceptPhrases  = []string{"will come", "will be there", "we'll be there", "i'll be there"}
	acceptWords    = []string{"yes", "yep", "yeah", "accept", "accepting", "attending", "coming"}
)

// ParseReply reads a yes/no answer. Declines are checked first so that
// "not coming" is not taken as "coming".
func ParseReply(text string) (models.RSVPStatus, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}
	if containsAny(text, declinePhrases...) {
		return models.RSVPDeclined, true
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	if hasWord(words, declineWords...) || strings.Contains(text, "❌") {
		return models.RSVPDeclined, true
	}
	if containsAny(text, acceptPhrases...) || hasWord(words, acceptWords...) || strings.Contains(text, "✅") {
		return models.RSVPAccepted, true
	}
	return "", false
}

// containsAny checks if the text contains any of the given keywords
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func hasWord(words []string, keywords ...string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}
