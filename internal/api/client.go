package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wedding-builder/internal/models"
)

var (
	// ErrNotFound is returned for unknown or foreign invitations
	ErrNotFound = errors.New("invitation not found")
	// ErrUnauthorized is returned when the server rejects the session
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is a non-2xx reply
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses to sentinel errors
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// TokenSource supplies the bearer token for requests
type TokenSource interface {
	Token() string
}

// Client talks to the invitation API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// GetInvitation fetches one of the user's invitations
func (c *Client) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := c.do(ctx, http.MethodGet, "/api/invitations/"+url.PathEscape(id), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvitations returns the user's invitations
func (c *Client) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := c.do(ctx, http.MethodGet, "/api/invitations", nil, &invitations); err != nil {
		return nil, err
	}
	return invitations, nil
}

// CreateInvitation stores a new invitation and returns it with its id
func (c *Client) CreateInvitation(ctx context.Context, in models.InvitationInput) (*models.Invitation, error) {
	var inv models.Invitation
	if err := c.do(ctx, http.MethodPost, "/api/invitations", in, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvitation replaces an invitation's content
func (c *Client) UpdateInvitation(ctx context.Context, id string, in models.InvitationInput) (*models.Invitation, error) {
	var inv models.Invitation
	if err := c.do(ctx, http.MethodPut, "/api/invitations/"+url.PathEscape(id), in, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// PublishInvitation marks the invitation published after checkout
func (c *Client) PublishInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := c.do(ctx, http.MethodPost, "/api/invitations/"+url.PathEscape(id)+"/publish", nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
