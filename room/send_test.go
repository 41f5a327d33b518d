package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/errors"
)

func TestSendWalksStatusLifecycle(t *testing.T) {
	var sent api.AddCommentParams
	be := &fakeBackend{
		addComment: func(p api.AddCommentParams) (*api.AddCommentResponse, error) {
			sent = p
			return &api.AddCommentResponse{CommentID: 99}, nil
		},
	}
	e, fc := newTestEngine(t, be)

	tempID, err := e.Send(context.Background(), SendRequest{
		Text:        "  worth a read  ",
		TaggedQuote: "tidal power scales",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(tempID, "temp-"))

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "worth a read", snap[0].Text)
	assert.Equal(t, StatusSending, snap[0].Status)
	assert.True(t, snap[0].IsOwn)

	// Wait for the dispatch to confirm and schedule pacing plus refresh
	require.Eventually(t, func() bool {
		return e.Snapshot()[0].CommentID == 99 && fc.PendingTimers() >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(7), sent.ArticleID)
	assert.Equal(t, int64(42), sent.ParentCommentID)
	assert.Equal(t, "worth a read", sent.Content)
	assert.Equal(t, "tidal power scales", sent.Quote)

	fc.Advance(300 * time.Millisecond)
	assert.Equal(t, StatusSent, e.Snapshot()[0].Status)

	fc.Advance(300 * time.Millisecond)
	assert.Equal(t, StatusDelivered, e.Snapshot()[0].Status)
}

func TestSendRefreshReplacesTempWithServerCopy(t *testing.T) {
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			return &api.AddCommentResponse{CommentID: 99}, nil
		},
	}
	be.fetchSub = func(p api.FetchSubCommentsParams) (*api.SubCommentsResponse, error) {
		return &api.SubCommentsResponse{Comments: []api.SubComment{{
			CommentID: 99,
			Content:   "worth a read",
			UserID:    "user-1",
			UserName:  "Alex Reader",
			CreatedAt: testStart.Format(time.RFC3339),
		}}}, nil
	}
	e, fc := newTestEngine(t, be)

	_, err := e.Send(context.Background(), SendRequest{Text: "worth a read"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Snapshot()[0].CommentID == 99 && fc.PendingTimers() >= 3
	}, time.Second, 5*time.Millisecond)

	fc.Advance(3 * time.Second)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "99", snap[0].ID)
	assert.True(t, snap[0].IsOwn)
	assert.Equal(t, StatusRead, snap[0].Status)
}

func TestSendFailureMarksMessage(t *testing.T) {
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			return nil, errors.NewNetworkError("backend unreachable")
		},
	}
	e, _ := newTestEngine(t, be)

	_, err := e.Send(context.Background(), SendRequest{Text: "doomed"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Snapshot()[0].SendFailed
	}, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.Contains(t, snap[0].Text, "Failed to send")
	assert.Equal(t, StatusSent, snap[0].Status)
}

func TestSendRequiresTaggedQuoteWhenAsked(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	_, err := e.Send(context.Background(), SendRequest{
		Text:               "a fresh thought",
		RequireTaggedQuote: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, e.Snapshot())
	require.Len(t, e.Notices(), 1)
	assert.Equal(t, "Select article text to start a thought", e.Notices()[0].Text)
}

func TestSweepForcesStuckSending(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			<-block
			return nil, errors.NewNetworkError("gone")
		},
	}
	e, fc := newTestEngine(t, be)

	_, err := e.Send(context.Background(), SendRequest{Text: "stuck forever"})
	require.NoError(t, err)

	fc.Advance(11 * time.Second)
	e.Sweep()

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StatusSent, snap[0].Status)
	assert.Contains(t, snap[0].Text, "Send timed out")
}

func TestStartSweepRunsPeriodically(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			<-block
			return nil, errors.NewNetworkError("gone")
		},
	}
	e, fc := newTestEngine(t, be)
	e.StartSweep()
	defer e.StopSweep()

	_, err := e.Send(context.Background(), SendRequest{Text: "stuck forever"})
	require.NoError(t, err)

	fc.Advance(15 * time.Second)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StatusSent, snap[0].Status)
}

func TestAskAIAppendsQuestionAndAnswer(t *testing.T) {
	var persisted api.AddCommentParams
	be := &fakeBackend{
		queryAI: func(p api.AIQueryParams) (*api.AIQueryResponse, error) {
			return &api.AIQueryResponse{SummaryMini: "Tidal flow does."}, nil
		},
		addComment: func(p api.AddCommentParams) (*api.AddCommentResponse, error) {
			persisted = p
			return &api.AddCommentResponse{CommentID: 77}, nil
		},
	}
	e, _ := newTestEngine(t, be)

	questionID, err := e.AskAI(context.Background(), "What powers the turbine?")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(questionID, "question-"))

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return len(snap) == 2 && snap[1].CommentID == 77
	}, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.Equal(t, TypeAI, snap[1].Type)
	assert.Equal(t, aiAuthor, snap[1].Author)
	assert.Equal(t, "Tidal flow does.", snap[1].Text)
	assert.Equal(t, "What powers the turbine?", snap[1].Title)
	assert.False(t, e.AILoading())

	assert.Equal(t, "What powers the turbine?", persisted.Title)
	assert.Equal(t, int64(42), persisted.ParentCommentID)
}

func TestAskAIWithoutContextFailsQuestion(t *testing.T) {
	cfg := testEngineConfig()
	e := NewEngine(&fakeBackend{}, Options{
		SelfID:   "user-1",
		SelfName: "Alex Reader",
		Config:   &cfg,
	})

	questionID, err := e.AskAI(context.Background(), "Anyone there?")
	require.Error(t, err)
	assert.True(t, errors.IsReconciliation(err))
	assert.Contains(t, err.Error(), "article id")
	assert.Contains(t, err.Error(), "parent comment id")
	assert.Contains(t, err.Error(), "article summary")

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, questionID, snap[0].ID)
	assert.True(t, snap[0].SendFailed)
}

func TestAskAIFailureMarksQuestion(t *testing.T) {
	be := &fakeBackend{
		queryAI: func(api.AIQueryParams) (*api.AIQueryResponse, error) {
			return nil, errors.NewNetworkError("summarizer down")
		},
	}
	e, _ := newTestEngine(t, be)

	_, err := e.AskAI(context.Background(), "Will this fail?")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return len(snap) == 1 && snap[0].SendFailed
	}, time.Second, 5*time.Millisecond)
	assert.False(t, e.AILoading())
}
