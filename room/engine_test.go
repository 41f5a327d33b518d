package room

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/clock"
	"github.com/philonet/rooms/pkg/errors"
)

var testStart = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func testEngineConfig() Config {
	return Config{
		SentDelay:        300 * time.Millisecond,
		DeliveredDelay:   600 * time.Millisecond,
		RefreshDelay:     3 * time.Second,
		SweepInterval:    5 * time.Second,
		StuckThreshold:   10 * time.Second,
		AIReplyWindow:    120 * time.Second,
		AIActivityWindow: 10 * time.Second,
		NoticeTTL:        3 * time.Second,
		ValidationTTL:    5 * time.Second,
	}
}

// fakeBackend lets each test script the dispatch results
type fakeBackend struct {
	mu            sync.Mutex
	fetchComments func(api.FetchCommentsParams) (*api.CommentsResponse, error)
	fetchSub      func(api.FetchSubCommentsParams) (*api.SubCommentsResponse, error)
	addComment    func(api.AddCommentParams) (*api.AddCommentResponse, error)
	toggle        func(api.ToggleReactionParams) (*api.ToggleReactionResponse, error)
	queryAI       func(api.AIQueryParams) (*api.AIQueryResponse, error)
	toggleCalls   int
	fetchSubCalls int
}

func (f *fakeBackend) FetchComments(_ context.Context, p api.FetchCommentsParams) (*api.CommentsResponse, error) {
	f.mu.Lock()
	fn := f.fetchComments
	f.mu.Unlock()
	if fn == nil {
		return &api.CommentsResponse{}, nil
	}
	return fn(p)
}

func (f *fakeBackend) FetchSubComments(_ context.Context, p api.FetchSubCommentsParams) (*api.SubCommentsResponse, error) {
	f.mu.Lock()
	f.fetchSubCalls++
	fn := f.fetchSub
	f.mu.Unlock()
	if fn == nil {
		return &api.SubCommentsResponse{}, nil
	}
	return fn(p)
}

func (f *fakeBackend) AddComment(_ context.Context, p api.AddCommentParams) (*api.AddCommentResponse, error) {
	f.mu.Lock()
	fn := f.addComment
	f.mu.Unlock()
	if fn == nil {
		return &api.AddCommentResponse{CommentID: 1}, nil
	}
	return fn(p)
}

func (f *fakeBackend) ToggleReaction(_ context.Context, p api.ToggleReactionParams) (*api.ToggleReactionResponse, error) {
	f.mu.Lock()
	f.toggleCalls++
	fn := f.toggle
	f.mu.Unlock()
	if fn == nil {
		return &api.ToggleReactionResponse{UserReacted: true, ReactionCount: 1}, nil
	}
	return fn(p)
}

func (f *fakeBackend) QueryAI(_ context.Context, p api.AIQueryParams) (*api.AIQueryResponse, error) {
	f.mu.Lock()
	fn := f.queryAI
	f.mu.Unlock()
	if fn == nil {
		return &api.AIQueryResponse{SummaryMini: "ok"}, nil
	}
	return fn(p)
}

func newTestEngine(t *testing.T, be Backend) (*Engine, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(testStart)
	cfg := testEngineConfig()
	e := NewEngine(be, Options{
		ArticleID:       7,
		ParentCommentID: 42,
		SelfID:          "user-1",
		SelfName:        "Alex Reader",
		AISummary:       "The article argues that tidal power scales.",
		Clock:           fc,
		Config:          &cfg,
	})
	return e, fc
}

func serverMessage(commentID int64, author, text string, at time.Time) *Message {
	return &Message{
		ID:        strconv.FormatInt(commentID, 10),
		CommentID: commentID,
		Text:      text,
		Author:    author,
		Timestamp: at,
		Type:      TypeText,
		Status:    StatusRead,
	}
}

func aiMessage(commentID int64, text string, at time.Time) *Message {
	m := serverMessage(commentID, aiAuthor, text, at)
	m.Type = TypeAI
	return m
}

func TestIngestSortsAndMerges(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	e.Ingest([]*Message{
		serverMessage(2, "Sam", "second", testStart.Add(-1*time.Hour)),
		serverMessage(1, "Sam", "first", testStart.Add(-2*time.Hour)),
	})

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "first", snap[0].Text)
	assert.Equal(t, "second", snap[1].Text)
}

func TestIngestRetiresConfirmedLocalMessage(t *testing.T) {
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			return &api.AddCommentResponse{CommentID: 99}, nil
		},
	}
	e, _ := newTestEngine(t, be)

	_, err := e.Send(context.Background(), SendRequest{Text: "hello there"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return len(snap) == 1 && snap[0].CommentID == 99
	}, time.Second, 5*time.Millisecond)

	server := serverMessage(99, "Alex Reader", "hello there", testStart)
	server.IsOwn = true
	e.Ingest([]*Message{server})

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(99), snap[0].CommentID)
	assert.Equal(t, StatusRead, snap[0].Status)
}

func TestIngestCarriesOverPendingLocalMessage(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			<-block
			return nil, errors.NewNetworkError("gone")
		},
	}
	e, _ := newTestEngine(t, be)

	tempID, err := e.Send(context.Background(), SendRequest{Text: "still in flight"})
	require.NoError(t, err)

	e.Ingest([]*Message{
		serverMessage(5, "Sam", "older reply", testStart.Add(-time.Minute)),
	})

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(5), snap[0].CommentID)
	assert.Equal(t, tempID, snap[1].ID)
	assert.Equal(t, StatusSending, snap[1].Status)
}

func TestIngestDropsFreshAIReply(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	userAt := testStart.Add(-time.Minute)
	e.Ingest([]*Message{
		serverMessage(10, "Sam", "what do you all think?", userAt),
		aiMessage(11, "Here is what I think.", userAt.Add(5*time.Second)),
	})

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(10), snap[0].CommentID)
}

func TestIngestKeepsAIReplyOutsideWindow(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	userAt := testStart.Add(-time.Hour)
	e.Ingest([]*Message{
		serverMessage(10, "Sam", "old question", userAt),
		aiMessage(11, "A considered answer.", userAt.Add(121*time.Second)),
	})

	snap := e.Snapshot()
	require.Len(t, snap, 2)
}

func TestIngestKeepsAskedForAIAnswer(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	userAt := testStart.Add(-time.Minute)
	question := serverMessage(20, "Alex Reader", "What powers the turbine?", userAt)
	question.IsOwn = true
	answer := aiMessage(21, "Tidal flow does.", userAt.Add(2*time.Second))
	answer.Title = "What powers the turbine?"

	e.Ingest([]*Message{question, answer})

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, TypeAI, snap[1].Type)
}

func TestIngestCountsPendingLocalAsActivity(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	be := &fakeBackend{
		addComment: func(api.AddCommentParams) (*api.AddCommentResponse, error) {
			<-block
			return nil, errors.NewNetworkError("gone")
		},
	}
	e, _ := newTestEngine(t, be)

	_, err := e.Send(context.Background(), SendRequest{Text: "typing right now"})
	require.NoError(t, err)

	e.Ingest([]*Message{
		aiMessage(30, "Unprompted thoughts.", testStart.Add(time.Second)),
	})

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].IsOwn)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	var mu sync.Mutex
	calls := 0
	unsub := e.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	e.Ingest([]*Message{serverMessage(1, "Sam", "hi", testStart)})
	mu.Lock()
	after := calls
	mu.Unlock()
	require.Positive(t, after)

	unsub()
	e.Ingest([]*Message{serverMessage(2, "Sam", "hi again", testStart)})
	mu.Lock()
	assert.Equal(t, after, calls)
	mu.Unlock()
}

func TestValidationNoticeExpires(t *testing.T) {
	e, fc := newTestEngine(t, &fakeBackend{})

	_, err := e.Send(context.Background(), SendRequest{Text: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	require.Len(t, e.Notices(), 1)
	assert.Equal(t, "Cannot send an empty message", e.Notices()[0].Text)

	fc.Advance(testEngineConfig().ValidationTTL)
	assert.Empty(t, e.Notices())
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	e, _ := newTestEngine(t, &fakeBackend{})

	msg := serverMessage(1, "Sam", "hi", testStart)
	msg.Reactions = []ReactionGroup{{Emoji: "❤️", Count: 1, Users: []string{"Sam"}}}
	e.Ingest([]*Message{msg})

	snap := e.Snapshot()
	snap[0].Text = "mutated"
	snap[0].Reactions[0].Users[0] = "mutated"

	again := e.Snapshot()
	assert.Equal(t, "hi", again[0].Text)
	assert.Equal(t, "Sam", again[0].Reactions[0].Users[0])
}
