package goals

import (
	"context"
	"net/http"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finadvisor-poc/server/internal/advisor"
	errx "github.com/finadvisor-poc/server/internal/core/error"
	"github.com/finadvisor-poc/server/internal/history"
	"github.com/finadvisor-poc/server/internal/llm"
)

type fakeGen struct {
	out     string
	gotMsgs []*schema.Message
}

func (f *fakeGen) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.gotMsgs = input
	return schema.AssistantMessage(f.out, nil), nil
}

func newGoalRouter(classifierOut, responderOut string) (*Router, *fakeGen, history.Store) {
	store := history.NewMemoryStore()
	responder := &fakeGen{out: responderOut}
	models := &llm.Models{
		Classifier: &fakeGen{out: classifierOut},
		Responder:  responder,
	}
	return NewRouter(models, store, advisor.Config{MaxTurns: 10, ClassifierMaxTurns: 5}), responder, store
}

func conv(store history.Store, query string) advisor.Conversation {
	return advisor.Conversation{UserID: "u1", SessionID: "s1", Query: query, Store: store}
}

func TestHandleTravelGoal(t *testing.T) {
	r, responder, store := newGoalRouter(
		`{"top_match": "Travel", "confidence_score": 0.85, "not_supported": false, "context_change": false}`,
		"What is your monthly take-home salary?",
	)

	out, err := r.Handle(context.Background(), conv(store, "I want to save for a Europe trip"))
	require.NoError(t, err)
	assert.Equal(t, "What is your monthly take-home salary?", out)

	require.NotEmpty(t, responder.gotMsgs)
	assert.Contains(t, responder.gotMsgs[0].Content, "travel goal")
}

func TestHandleLoanGoalsShareOnePrompt(t *testing.T) {
	for _, goal := range []string{"Home", "Car"} {
		r, responder, store := newGoalRouter(
			`{"top_match": "`+goal+`", "confidence_score": 0.9, "not_supported": false, "context_change": false}`,
			"noted",
		)
		_, err := r.Handle(context.Background(), conv(store, "I want to buy one"))
		require.NoError(t, err)
		assert.Contains(t, responder.gotMsgs[0].Content, goal+" purchase")
	}
}

func TestHandleRetirementNotSupported(t *testing.T) {
	r, _, store := newGoalRouter(
		`{"top_match": "Retirement", "confidence_score": 0.9, "not_supported": false, "context_change": false}`,
		"unused",
	)

	_, err := r.Handle(context.Background(), conv(store, "plan my retirement"))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotImplemented, errx.StatusOf(err, 0))
}

func TestHandleRejectsUndecidableGoal(t *testing.T) {
	r, _, store := newGoalRouter(
		`{"top_match": "", "confidence_score": 0.0, "not_supported": true, "context_change": false}`,
		"unused",
	)

	_, err := r.Handle(context.Background(), conv(store, "hmm"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrUnsupportedQuery)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err, 0))
}

func TestHandleParseFailureRejects(t *testing.T) {
	r, _, store := newGoalRouter("not json", "unused")

	_, err := r.Handle(context.Background(), conv(store, "anything"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrUnsupportedQuery)
}

func TestHandleFoldsHistoryIntoPrompt(t *testing.T) {
	r, responder, store := newGoalRouter(
		`{"top_match": "Education", "confidence_score": 0.9, "not_supported": false, "context_change": false}`,
		"noted",
	)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "u1", "s1", history.RoleUser, "I earn 2 lakh a month"))
	require.NoError(t, store.Append(ctx, "u1", "s1", history.RoleAssistant, "Got it. What are your monthly expenses?"))

	_, err := r.Handle(ctx, conv(store, "around 80k"))
	require.NoError(t, err)

	require.Len(t, responder.gotMsgs, 4)
	assert.Equal(t, "I earn 2 lakh a month", responder.gotMsgs[1].Content)
	assert.Equal(t, "around 80k", responder.gotMsgs[3].Content)
}
