package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finadvisor-poc/server/internal/advisor"
	errx "github.com/finadvisor-poc/server/internal/core/error"
	"github.com/finadvisor-poc/server/internal/history"
)

type fakeRouter struct {
	res      *advisor.Result
	err      error
	lastConv advisor.Conversation
}

func (f *fakeRouter) Route(ctx context.Context, conv advisor.Conversation) (*advisor.Result, error) {
	f.lastConv = conv
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeValidator struct {
	userID string
	err    error
}

func (f *fakeValidator) Validate(ctx context.Context, token string) (string, error) {
	return f.userID, f.err
}

func newTestServer(router *fakeRouter, auth Validator) (*Server, history.Store) {
	store := history.NewMemoryStore()
	return New(Config{Mode: "test"}, router, store, auth), store
}

func postJSON(t *testing.T, s *Server, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestChatSuccessAppendsTurns(t *testing.T) {
	router := &fakeRouter{res: &advisor.Result{
		Status:     advisor.StatusSuccess,
		Category:   advisor.CategoryPortfolioAnalysis,
		Confidence: 0.9,
		Message:    "your portfolio is up 12%",
	}}
	s, store := newTestServer(router, nil)

	w := postJSON(t, s, "/agent/chat?user_id=u1", `{"query": "How is my portfolio performing?", "session_id": "s1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "your portfolio is up 12%", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "Portfolio Analysis", resp.Category)

	turns, err := store.SessionHistory(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, history.RoleUser, turns[0].Role)
	assert.Equal(t, "How is my portfolio performing?", turns[0].Content)
	assert.Equal(t, history.RoleAssistant, turns[1].Role)
}

func TestChatGeneratesSessionID(t *testing.T) {
	router := &fakeRouter{res: &advisor.Result{Status: advisor.StatusSuccess, Message: "ok"}}
	s, _ := newTestServer(router, nil)

	w := postJSON(t, s, "/agent/chat", `{"query": "hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, router.lastConv.SessionID)
}

func TestChatMissingQuery(t *testing.T) {
	s, _ := newTestServer(&fakeRouter{}, nil)
	w := postJSON(t, s, "/agent/chat", `{"session_id": "s1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatRejectionReturnsNon200WithoutTurns(t *testing.T) {
	router := &fakeRouter{res: &advisor.Result{
		Status:  advisor.StatusError,
		Message: errx.UnsupportedQueryMessage,
	}}
	s, store := newTestServer(router, nil)

	w := postJSON(t, s, "/agent/chat?user_id=u1", `{"query": "qwerty", "session_id": "s1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not match any supported category")

	turns, err := store.SessionHistory(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatHandlerErrorMapsAppErrorStatus(t *testing.T) {
	router := &fakeRouter{err: errx.New(errors.New("no retirement agent"), http.StatusNotImplemented,
		"Planning for Retirement goals is not supported yet.")}
	s, _ := newTestServer(router, nil)

	w := postJSON(t, s, "/agent/chat", `{"query": "plan my retirement"}`, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, w.Body.String(), "not supported yet")
}

func TestChatInternalErrorHidesDetails(t *testing.T) {
	router := &fakeRouter{err: errors.New("connection reset by peer")}
	s, _ := newTestServer(router, nil)

	w := postJSON(t, s, "/agent/chat", `{"query": "hello"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	assert.Contains(t, w.Body.String(), errx.SystemErrorMessage)
}

func TestAuthValidatorResolvesIdentity(t *testing.T) {
	router := &fakeRouter{res: &advisor.Result{Status: advisor.StatusSuccess, Message: "ok"}}
	s, _ := newTestServer(router, &fakeValidator{userID: "authed-user"})

	w := postJSON(t, s, "/agent/chat", `{"query": "hello"}`, map[string]string{"Authorization": "Bearer tok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authed-user", router.lastConv.UserID)
}

func TestAuthInvalidCredentialRejected(t *testing.T) {
	s, _ := newTestServer(&fakeRouter{}, &fakeValidator{err: errors.New("expired")})
	w := postJSON(t, s, "/agent/chat", `{"query": "hello"}`, map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFallsBackToAnonymous(t *testing.T) {
	router := &fakeRouter{res: &advisor.Result{Status: advisor.StatusSuccess, Message: "ok"}}
	s, _ := newTestServer(router, &fakeValidator{userID: "unused"})

	w := postJSON(t, s, "/agent/chat", `{"query": "hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", router.lastConv.UserID)
}

func TestNewSessionClearsSiblings(t *testing.T) {
	s, store := newTestServer(&fakeRouter{}, nil)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "u1", "s1", history.RoleUser, "old turn"))

	w := postJSON(t, s, "/agent/session?user_id=u1", `{"session_id": "s2"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "s2")

	turns, err := store.SessionHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInfoListsCategories(t *testing.T) {
	s, _ := newTestServer(&fakeRouter{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/agent/chat", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Portfolio Analysis")
}
