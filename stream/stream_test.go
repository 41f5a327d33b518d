package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/room"
	"github.com/philonet/rooms/session"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer serves the handler over websocket and returns its ws:// URL
func wsServer(t *testing.T, handler func(*websocket.Conn, *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestSubscriber(url string, onEvent func(Event)) *Subscriber {
	store := session.NewMemoryStore()
	store.SetAuth(context.Background(), "opaque-test-token", &session.User{ID: 1, Name: "Alex Reader"})
	return New(Options{
		URL:           url,
		Sessions:      store,
		OnEvent:       onEvent,
		ReconnectBase: 5 * time.Millisecond,
		ReconnectCap:  20 * time.Millisecond,
		MaxAttempts:   3,
	})
}

func TestSubscriberReceivesEvents(t *testing.T) {
	var gotAuth string
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn.WriteJSON(Event{
			Type:      EventMessage,
			ArticleID: 7,
			Comment: &api.SubComment{
				CommentID: 100,
				Content:   "a live reply",
				UserID:    "user-2",
				UserName:  "Sam",
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			},
		})
		conn.WriteJSON(Event{
			Type:     EventUserJoined,
			Presence: &PresenceEvent{UserID: "user-3", UserName: "Priya"},
		})
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	var mu sync.Mutex
	var events []Event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := newTestSubscriber(url, func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		if e.Type == EventUserJoined {
			cancel()
		}
	})

	require.NoError(t, sub.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, EventMessage, events[0].Type)
	assert.Equal(t, int64(100), events[0].Comment.CommentID)
	assert.Equal(t, EventUserJoined, events[1].Type)
	assert.Equal(t, "Bearer opaque-test-token", gotAuth)
}

func TestSubscriberReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		conn.WriteJSON(Event{
			Type:     EventReaction,
			Reaction: &ReactionEvent{CommentID: int64(n), ReactionType: "love", Count: n},
		})
		if n == 1 {
			return // drop the first connection immediately
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []Event
	var evMu sync.Mutex
	sub := newTestSubscriber(url, func(e Event) {
		evMu.Lock()
		events = append(events, e)
		n := len(events)
		evMu.Unlock()
		if n == 2 {
			cancel()
		}
	})

	require.NoError(t, sub.Run(ctx))

	evMu.Lock()
	defer evMu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Reaction.CommentID)
	assert.Equal(t, int64(2), events[1].Reaction.CommentID)
}

func TestSubscriberGivesUpAfterMaxAttempts(t *testing.T) {
	sub := newTestSubscriber("ws://127.0.0.1:1/ws", nil)

	err := sub.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live updates unavailable")
}

func TestToMessageConvertsMessageFrames(t *testing.T) {
	ev := Event{
		Type: EventMessage,
		Comment: &api.SubComment{
			CommentID: 5,
			Content:   "hello",
			UserID:    "user-1",
			UserName:  "Alex Reader",
			CreatedAt: "2025-01-10T12:00:00Z",
		},
	}

	msg, ok := ToMessage(ev, "user-1")
	require.True(t, ok)
	assert.Equal(t, int64(5), msg.CommentID)
	assert.True(t, msg.IsOwn)
	assert.Equal(t, room.StatusRead, msg.Status)

	_, ok = ToMessage(Event{Type: EventReaction}, "user-1")
	assert.False(t, ok)
}
