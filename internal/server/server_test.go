package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-builder/internal/models"
	"wedding-builder/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAuthenticator struct {
	tokens map[string]uuid.UUID
}

func (m *mockAuthenticator) Validate(token string) (uuid.UUID, error) {
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, errors.New("unknown token")
	}
	return id, nil
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Count     int             `json:"count"`
	Attending int             `json:"attending"`
}

type testServer struct {
	handler http.Handler
	repo    *repository.Repository
}

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := repository.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	auth := &mockAuthenticator{tokens: map[string]uuid.UUID{
		aliceToken: uuid.New(),
		bobToken:   uuid.New(),
	}}
	s := NewServer(repo, auth, zerolog.Nop(), Config{AllowedOrigins: []string{"http://localhost:5173"}})
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return &testServer{handler: s.Handler(), repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decodeInvitation(t *testing.T, env envelope) models.Invitation {
	t.Helper()
	var inv models.Invitation
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	return inv
}

func draftInput() models.InvitationInput {
	return models.InvitationInput{
		Plan:         models.PlanBasis,
		TemplateID:   "classic-elegance",
		Partner1Name: "Anna",
		Partner2Name: "Ben",
		WeddingDate:  "2026-09-12",
		RSVPConfig: models.RSVPConfig{
			Enabled:  true,
			Deadline: "2026-08-01",
			Fields:   models.RSVPFields{PlusOne: true, Dietary: true, Song: true},
		},
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/api/invitations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)

	w, _ = ts.do(t, http.MethodGet, "/api/invitations", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvitationLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/invitations", aliceToken, draftInput())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeInvitation(t, env)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusDraft, created.Status)

	w, env = ts.do(t, http.MethodGet, "/api/invitations/"+created.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Anna", decodeInvitation(t, env).Partner1Name)

	w, _ = ts.do(t, http.MethodGet, "/api/invitations/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	update := draftInput()
	update.Headline = "Save the date"
	w, env = ts.do(t, http.MethodPut, "/api/invitations/"+created.ID, aliceToken, update)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Save the date", decodeInvitation(t, env).Headline)

	w, env = ts.do(t, http.MethodGet, "/api/invitations", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Count)

	w, env = ts.do(t, http.MethodGet, "/api/invitations", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Count)
	assert.JSONEq(t, `[]`, string(env.Data))

	// drafts are not public
	w, _ = ts.do(t, http.MethodGet, "/api/public/invitations/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = ts.do(t, http.MethodPost, "/api/invitations/"+created.ID+"/publish", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	published := decodeInvitation(t, env)
	assert.True(t, published.Published())

	w, _ = ts.do(t, http.MethodPut, "/api/invitations/"+created.ID, aliceToken, update)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/public/invitations/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decodeInvitation(t, env)
	assert.Empty(t, public.OwnerID)
	assert.Equal(t, models.RSVPFields{PlusOne: true}, public.RSVPConfig.Fields)
}

func TestCreateInvitation_RejectsBadInput(t *testing.T) {
	ts := setupTestServer(t)

	in := draftInput()
	in.Plan = "platinum"
	w, env := ts.do(t, http.MethodPost, "/api/invitations", aliceToken, in)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown plan", env.Error)

	req := httptest.NewRequest(http.MethodPost, "/api/invitations", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRSVP(t *testing.T) {
	ts := setupTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/invitations", aliceToken, draftInput())
	id := decodeInvitation(t, env).ID
	ts.do(t, http.MethodPost, "/api/invitations/"+id+"/publish", aliceToken, nil)

	w, env := ts.do(t, http.MethodPost, "/api/public/invitations/"+id+"/rsvp", "", map[string]any{
		"guestName":   "Cleo",
		"attending":   true,
		"plusOneName": "Dan",
		"dietary":     "vegan",
		"song":        "Dancing Queen",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.RSVPResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.GuestCount)
	assert.Equal(t, "Dan", resp.PlusOneName)
	assert.Empty(t, resp.Dietary, "basis plan does not collect dietary needs")
	assert.Empty(t, resp.Song)

	w, _ = ts.do(t, http.MethodPost, "/api/public/invitations/"+id+"/rsvp", "", map[string]any{
		"guestName": "Eve",
		"attending": false,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/public/invitations/"+id+"/rsvp", "", map[string]any{
		"guestName": "Nobody",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "attending is required")

	w, env = ts.do(t, http.MethodGet, "/api/invitations/"+id+"/rsvps", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.Count)
	assert.Equal(t, 2, env.Attending)

	w, _ = ts.do(t, http.MethodGet, "/api/invitations/"+id+"/rsvps", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/invitations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
