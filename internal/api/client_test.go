package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-builder/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": status < 300}
	if data != nil {
		body["data"] = data
	}
	if errMsg != "" {
		body["error"] = errMsg
	}
	json.NewEncoder(w).Encode(body)
}

func TestClient_CreateAndUpdate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var in models.InvitationInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/invitations":
			assert.Equal(t, models.PlanDeluxe, in.Plan)
			writeEnvelope(w, http.StatusCreated, models.Invitation{ID: "inv-1", InvitationInput: in}, "")
		case r.Method == http.MethodPut && r.URL.Path == "/api/invitations/inv-1":
			writeEnvelope(w, http.StatusOK, models.Invitation{ID: "inv-1", InvitationInput: in}, "")
		default:
			writeEnvelope(w, http.StatusNotFound, nil, "not found")
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", staticToken("secret-token"), time.Second)
	require.NoError(t, err)

	created, err := c.CreateInvitation(context.Background(), models.InvitationInput{Plan: models.PlanDeluxe, Partner1Name: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", created.ID)
	assert.Equal(t, "Anna", created.Partner1Name)

	updated, err := c.UpdateInvitation(context.Background(), "inv-1", models.InvitationInput{Headline: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", updated.Headline)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/invitations/missing":
			writeEnvelope(w, http.StatusNotFound, nil, "invitation not found")
		case "/api/invitations/published":
			writeEnvelope(w, http.StatusConflict, nil, "invitation is published")
		case "/api/invitations":
			if r.Header.Get("Authorization") == "" {
				writeEnvelope(w, http.StatusUnauthorized, nil, "missing bearer token")
				return
			}
			writeEnvelope(w, http.StatusOK, []models.Invitation{{ID: "a"}, {ID: "b"}}, "")
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewClient(srv.URL, staticToken("t"), time.Second)
	require.NoError(t, err)

	_, err = c.GetInvitation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.UpdateInvitation(ctx, "published", models.InvitationInput{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Equal(t, "invitation is published", statusErr.Message)

	_, err = c.PublishInvitation(ctx, "gateway")
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)

	list, err := c.ListInvitations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	anonymous, err := NewClient(srv.URL, staticToken(""), time.Second)
	require.NoError(t, err)
	_, err = anonymous.ListInvitations(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
