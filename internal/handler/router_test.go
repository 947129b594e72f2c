package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livepoll/internal/config"
	"livepoll/internal/container"
	"livepoll/internal/domain"
	"livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *container.Container) {
	t.Helper()
	cfg := &config.Config{
		Environment:         "test",
		StoreBackend:        config.StoreMemory,
		JWTSecret:           "test-secret",
		AdminTokenTTL:       time.Hour,
		OTPCode:             "123456",
		LiveRefreshInterval: 20 * time.Millisecond,
	}
	c, err := container.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewRouter(c), c
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorType {
	t.Helper()
	var body errors.ErrorResponse
	decode(t, rec, &body)
	return body.Error.Type
}

func registerAdmin(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/admin/register", domain.CredentialsRequest{
		Email:    "host@example.com",
		Password: "secret-pw",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.AuthResponse
	decode(t, rec, &resp)
	return resp.AccessToken
}

func createAndLaunch(t *testing.T, h http.Handler, token string, visible bool) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/admin/polls", domain.CreatePollRequest{
		Title:                    "Standup",
		Question:                 "Red or blue?",
		Options:                  []string{"Red", "Blue", " "},
		ResultsVisibleToAudience: visible,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var poll domain.Poll
	decode(t, rec, &poll)
	require.Len(t, poll.Options, 2)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/polls/"+poll.ID+"/launch", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session domain.Session
	decode(t, rec, &session)
	return session.SessionCode
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, config.StoreMemory, resp.Store)
}

func TestCreateParticipant(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/participants", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ParticipantResponse
	decode(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.VoterID, "voter_"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/admin/polls", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/admin/polls", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/admin/polls", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAccountFlow(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/admin/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.AdminStatus
	decode(t, rec, &status)
	assert.False(t, status.HasAccount)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/register", domain.CredentialsRequest{Email: "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := registerAdmin(t, h)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/register", domain.CredentialsRequest{Email: "x@y.z", Password: "pw"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/login", domain.CredentialsRequest{Email: "host@example.com", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/verify-otp", domain.OTPRequest{Code: "999999"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/verify-otp", domain.OTPRequest{Code: "123456"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	name := "Host"
	rec = doJSON(t, h, http.MethodPut, "/api/admin/profile", domain.UpdateProfileRequest{Name: &name}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/admin/profile", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.AdminProfile
	decode(t, rec, &profile)
	assert.Equal(t, "Host", profile.Name)
	assert.Equal(t, "host@example.com", profile.Email)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUpdateProfileAcceptsInlinePhoto(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)

	photo := "data:image/png;base64," + strings.Repeat("A", 3<<20)
	rec := doJSON(t, h, http.MethodPut, "/api/admin/profile", domain.UpdateProfileRequest{ProfilePhoto: &photo}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.AdminProfile
	decode(t, rec, &profile)
	assert.Len(t, profile.ProfilePhoto, len(photo))

	tooBig := "data:image/png;base64," + strings.Repeat("A", maxProfileBodyBytes)
	rec = doJSON(t, h, http.MethodPut, "/api/admin/profile", domain.UpdateProfileRequest{ProfilePhoto: &tooBig}, token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, errors.ErrorTypeTooLarge, errorType(t, rec))

	// other routes keep the small limit
	title := strings.Repeat("T", maxBodyBytes)
	rec = doJSON(t, h, http.MethodPost, "/api/admin/polls", domain.CreatePollRequest{
		Title:    title,
		Question: "Q?",
		Options:  []string{"A", "B"},
	}, token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreatePollValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)

	tests := []struct {
		name  string
		req   domain.CreatePollRequest
		field string
	}{
		{name: "missing title", req: domain.CreatePollRequest{Question: "q", Options: []string{"a", "b"}}, field: "title"},
		{name: "missing question", req: domain.CreatePollRequest{Title: "t", Options: []string{"a", "b"}}, field: "question"},
		{name: "one real option", req: domain.CreatePollRequest{Title: "t", Question: "q", Options: []string{"a", "  "}}, field: "options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/admin/polls", tt.req, token)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body errors.ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, errors.ErrorTypeValidation, body.Error.Type)
			assert.Contains(t, body.Error.Details, tt.field)
		})
	}

	rec := doJSON(t, h, http.MethodPost, "/api/admin/polls/missing/launch", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVotingFlow(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)
	code := createAndLaunch(t, h, token, false)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/join", domain.JoinSessionRequest{SessionCode: strings.ToLower(code)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined domain.SessionView
	decode(t, rec, &joined)
	assert.Equal(t, code, joined.SessionCode)
	assert.Nil(t, joined.Results)

	option := 1
	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+code+"/votes", domain.VoteRequest{OptionIndex: &option, VoterID: "voter_a"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+code+"/votes", domain.VoteRequest{OptionIndex: &option, VoterID: "voter_a"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+code+"/voters/voter_a", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var voted HasVotedResponse
	decode(t, rec, &voted)
	assert.True(t, voted.HasVoted)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+code+"?voterId=voter_a", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.SessionView
	decode(t, rec, &view)
	assert.False(t, view.CanSeeResults)
	require.NotNil(t, view.HasVoted)
	assert.True(t, *view.HasVoted)

	rec = doJSON(t, h, http.MethodGet, "/api/admin/sessions/"+code, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	require.NotNil(t, view.Results)
	assert.Equal(t, 1, view.Results.TotalVotes)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/sessions/"+code+"/end", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+code, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = domain.SessionView{}
	decode(t, rec, &view)
	assert.False(t, view.IsActive)
	require.NotNil(t, view.Results)
	assert.Equal(t, 100.0, view.Results.Options[1].Percentage)

	other := 0
	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+code+"/votes", domain.VoteRequest{OptionIndex: &other, VoterID: "voter_b"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/admin/sessions/"+code+"/visibility", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/join", domain.JoinSessionRequest{SessionCode: code}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/admin/sessions/current", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVoteRejections(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)
	code := createAndLaunch(t, h, token, true)

	outOfRange := 7
	zero := 0
	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantType   errors.ErrorType
	}{
		{
			name:       "missing option",
			path:       "/api/sessions/" + code + "/votes",
			body:       domain.VoteRequest{VoterID: "v"},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
		{
			name:       "missing voter",
			path:       "/api/sessions/" + code + "/votes",
			body:       domain.VoteRequest{OptionIndex: &zero},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
		{
			name:       "option out of range",
			path:       "/api/sessions/" + code + "/votes",
			body:       domain.VoteRequest{OptionIndex: &outOfRange, VoterID: "v"},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
		{
			name:       "unknown session",
			path:       "/api/sessions/ZZZZZZ/votes",
			body:       domain.VoteRequest{OptionIndex: &zero, VoterID: "v"},
			wantStatus: http.StatusConflict,
			wantType:   errors.ErrorTypeConflict,
		},
		{
			name:       "malformed body",
			path:       "/api/sessions/" + code + "/votes",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, errorType(t, rec))
		})
	}
}

func TestJoinUnknownSession(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/join", domain.JoinSessionRequest{SessionCode: "NOPE00"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/join", domain.JoinSessionRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/NOPE00/voters/v", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrorTypeNotFound, errorType(t, rec))
}

func TestLiveFeedWebSocket(t *testing.T) {
	h, c := newTestRouter(t)
	token := registerAdmin(t, h)
	code := createAndLaunch(t, h, token, false)

	server := httptest.NewServer(h)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + code + "/live?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first LiveMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NotNil(t, first.Session)
	assert.Equal(t, code, first.Session.SessionCode)
	require.NotNil(t, first.Session.Results)
	assert.Equal(t, 0, first.Session.Results.TotalVotes)

	_, err = c.GetEngine().SubmitVote(context.Background(), code, 0, "voter_live")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg LiveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Session.Results != nil && msg.Session.Results.TotalVotes == 1 {
			break
		}
	}
}

func TestLiveFeedRejectsUnknownSessionAndBadToken(t *testing.T) {
	h, _ := newTestRouter(t)
	token := registerAdmin(t, h)
	code := createAndLaunch(t, h, token, false)

	rec := doJSON(t, h, http.MethodGet, "/api/sessions/NOPE00/live", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+code+"/live?token=forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
