package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"wedding-builder/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to someone else
	ErrNotFound = errors.New("not found")
	// ErrPublished is returned when editing an invitation that has been published
	ErrPublished = errors.New("invitation is published")
)

// Repository stores invitations, RSVP responses and guests in SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the database at path
func Open(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	r := &Repository{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return r, nil
}

func (r *Repository) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS invitations (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			published_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS rsvp_responses (
			id TEXT PRIMARY KEY,
			invitation_id TEXT NOT NULL,
			data TEXT NOT NULL,
			submitted_at DATETIME NOT NULL,
			FOREIGN KEY (invitation_id) REFERENCES invitations(id)
		);

		CREATE TABLE IF NOT EXISTS guests (
			invitation_id TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			name TEXT NOT NULL,
			rsvp_status TEXT NOT NULL DEFAULT 'pending',
			rsvp_date DATETIME,
			invited_date DATETIME NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (invitation_id, phone_number)
		);

		CREATE INDEX IF NOT EXISTS idx_invitations_owner ON invitations(owner_id);
		CREATE INDEX IF NOT EXISTS idx_rsvp_invitation ON rsvp_responses(invitation_id);
		CREATE INDEX IF NOT EXISTS idx_guests_phone ON guests(phone_number);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateInvitation stores a new draft invitation for owner
func (r *Repository) CreateInvitation(ctx context.Context, ownerID string, in models.InvitationInput) (*models.Invitation, error) {
	in.Normalize()
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invitation: %w", err)
	}

	now := r.now().UTC()
	inv := &models.Invitation{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Status:          models.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
		InvitationInput: in,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, owner_id, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.OwnerID, inv.Status, string(data), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invitation: %w", err)
	}
	return inv, nil
}

const invitationColumns = `id, owner_id, status, data, created_at, updated_at, published_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	var (
		inv       models.Invitation
		data      string
		published sql.NullTime
	)
	if err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Status, &data, &inv.CreatedAt, &inv.UpdatedAt, &published); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &inv.InvitationInput); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invitation %s: %w", inv.ID, err)
	}
	inv.Normalize()
	if published.Valid {
		t := published.Time
		inv.PublishedAt = &t
	}
	return &inv, nil
}

// GetInvitation returns an invitation by id regardless of owner
func (r *Repository) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetOwnedInvitation returns an invitation only if ownerID owns it
func (r *Repository) GetOwnedInvitation(ctx context.Context, ownerID, id string) (*models.Invitation, error) {
	inv, err := r.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OwnerID != ownerID {
		return nil, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}
	return inv, nil
}

// UpdateInvitation replaces the content of a draft invitation
func (r *Repository) UpdateInvitation(ctx context.Context, ownerID, id string, in models.InvitationInput) (*models.Invitation, error) {
	inv, err := r.GetOwnedInvitation(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if inv.Published() {
		return nil, fmt.Errorf("invitation %s: %w", id, ErrPublished)
	}

	in.Normalize()
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invitation: %w", err)
	}

	inv.InvitationInput = in
	inv.UpdatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET data = ?, updated_at = ? WHERE id = ? AND status = ?
	`, string(data), inv.UpdatedAt, id, models.StatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}
	if n == 0 {
		// published after the read above
		return nil, fmt.Errorf("invitation %s: %w", id, ErrPublished)
	}
	return inv, nil
}

// ListInvitations returns the owner's invitations, newest first
func (r *Repository) ListInvitations(ctx context.Context, ownerID string) ([]*models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE owner_id = ? ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// PublishInvitation marks the invitation published. Publishing twice is a no-op.
func (r *Repository) PublishInvitation(ctx context.Context, ownerID, id string) (*models.Invitation, error) {
	inv, err := r.GetOwnedInvitation(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if inv.Published() {
		return inv, nil
	}

	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE invitations SET status = ?, published_at = ?, updated_at = ? WHERE id = ?
	`, models.StatusPublished, now, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to publish invitation: %w", err)
	}
	inv.Status = models.StatusPublished
	inv.PublishedAt = &now
	inv.UpdatedAt = now
	return inv, nil
}
