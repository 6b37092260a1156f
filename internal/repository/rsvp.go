package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wedding-builder/internal/models"
)

// SaveRSVP stores a reply to a published invitation
func (r *Repository) SaveRSVP(ctx context.Context, resp models.RSVPResponse) (*models.RSVPResponse, error) {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = r.now().UTC()
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rsvp: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rsvp_responses (id, invitation_id, data, submitted_at) VALUES (?, ?, ?, ?)
	`, resp.ID, resp.InvitationID, string(data), resp.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rsvp: %w", err)
	}
	return &resp, nil
}

// ListRSVPs returns the replies to an invitation in submission order
func (r *Repository) ListRSVPs(ctx context.Context, invitationID string) ([]models.RSVPResponse, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM rsvp_responses WHERE invitation_id = ? ORDER BY submitted_at ASC
	`, invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()

	var responses []models.RSVPResponse
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		var resp models.RSVPResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rsvp: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// AddGuest adds a new guest or updates an existing one. The invited date and
// a recorded answer survive re-invites.
func (r *Repository) AddGuest(ctx context.Context, guest models.Guest) error {
	if guest.InvitedDate.IsZero() {
		guest.InvitedDate = r.now().UTC()
	}
	if guest.RSVPStatus == "" {
		guest.RSVPStatus = models.RSVPPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guests (invitation_id, phone_number, name, rsvp_status, invited_date, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (invitation_id, phone_number) DO UPDATE SET name = excluded.name
	`, guest.InvitationID, guest.PhoneNumber, guest.Name, guest.RSVPStatus, guest.InvitedDate, guest.Notes)
	if err != nil {
		return fmt.Errorf("failed to add guest: %w", err)
	}
	return nil
}

const guestColumns = `invitation_id, phone_number, name, rsvp_status, rsvp_date, invited_date, notes`

func scanGuest(row interface{ Scan(...any) error }) (*models.Guest, error) {
	var (
		g        models.Guest
		rsvpDate sql.NullTime
	)
	if err := row.Scan(&g.InvitationID, &g.PhoneNumber, &g.Name, &g.RSVPStatus, &rsvpDate, &g.InvitedDate, &g.Notes); err != nil {
		return nil, err
	}
	if rsvpDate.Valid {
		g.RSVPDate = rsvpDate.Time
	}
	return &g, nil
}

// FindGuestByPhone returns the most recently invited guest with the phone number
func (r *Repository) FindGuestByPhone(ctx context.Context, phoneNumber string) (*models.Guest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+guestColumns+` FROM guests WHERE phone_number = ? ORDER BY invited_date DESC LIMIT 1
	`, phoneNumber)
	g, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guest %s: %w", phoneNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return g, nil
}

// UpdateGuestRSVP records a guest's answer
func (r *Repository) UpdateGuestRSVP(ctx context.Context, invitationID, phoneNumber string, status models.RSVPStatus, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE guests SET rsvp_status = ?, rsvp_date = ?, notes = CASE WHEN ? = '' THEN notes ELSE ? END
		WHERE invitation_id = ? AND phone_number = ?
	`, status, r.now().UTC(), notes, notes, invitationID, phoneNumber)
	if err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("guest %s: %w", phoneNumber, ErrNotFound)
	}
	return nil
}

// ListGuests returns an invitation's guests, optionally filtered by status
func (r *Repository) ListGuests(ctx context.Context, invitationID string, status models.RSVPStatus) ([]models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE invitation_id = ?`
	args := []any{invitationID}
	if status != "" {
		query += ` AND rsvp_status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY invited_date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	return guests, rows.Err()
}
