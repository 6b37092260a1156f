package models

import "time"

// Guest represents a wedding guest reached through a messaging channel
type Guest struct {
	InvitationID string     `json:"invitation_id"`
	PhoneNumber  string     `json:"phone_number"`
	Name         string     `json:"name"`
	RSVPStatus   RSVPStatus `json:"rsvp_status"`
	RSVPDate     time.Time  `json:"rsvp_date,omitempty"`
	InvitedDate  time.Time  `json:"invited_date"`
	Notes        string     `json:"notes,omitempty"`
}

// RSVPStatus represents the attendance confirmation status
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// Valid reports whether s is a known status
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined:
		return true
	}
	return false
}

// RSVPResponse is a reply submitted through the public invitation page
type RSVPResponse struct {
	ID           string            `json:"id"`
	InvitationID string            `json:"invitation_id"`
	GuestName    string            `json:"guest_name"`
	Email        string            `json:"email,omitempty"`
	Attending    bool              `json:"attending"`
	GuestCount   int               `json:"guest_count"`
	PlusOneName  string            `json:"plus_one_name,omitempty"`
	Dietary      string            `json:"dietary,omitempty"`
	Message      string            `json:"message,omitempty"`
	Song         string            `json:"song,omitempty"`
	Answers      map[string]string `json:"answers,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
}
