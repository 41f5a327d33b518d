package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/logger"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(logger.New(logger.Config{Level: "error"}))
	go hub.Run()

	engine := gin.New()
	engine.GET("/ws", hub.Handler())
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubBroadcastsCommentsToArticleRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "?article_id=7")

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)

	hub.CommentAdded(7, api.SubComment{
		CommentID: 99,
		Content:   "fresh reply",
		UserName:  "Maria Santos",
	})

	ev := readEvent(t, conn)
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, int64(7), ev.ArticleID)
	require.NotNil(t, ev.Comment)
	assert.Equal(t, int64(99), ev.Comment.CommentID)
	assert.Equal(t, "fresh reply", ev.Comment.Content)
}

func TestHubScopesEventsToSubscribedArticle(t *testing.T) {
	hub, srv := newTestHub(t)
	other := dial(t, srv, "?article_id=8")

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)

	hub.CommentAdded(7, api.SubComment{CommentID: 99, Content: "not for room 8"})
	hub.ReactionChanged(8, 55, "love", 2, "Maria Santos")

	// The first frame this subscriber sees is the room 8 reaction
	ev := readEvent(t, other)
	assert.Equal(t, "reaction", ev.Type)
	require.NotNil(t, ev.Reaction)
	assert.Equal(t, int64(55), ev.Reaction.CommentID)
	assert.Equal(t, 2, ev.Reaction.Count)
}

func TestHubAllRoomsSubscriberSeesEverything(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)

	hub.ReactionChanged(3, 12, "star", 1, "Alex Reader")

	ev := readEvent(t, conn)
	assert.Equal(t, "reaction", ev.Type)
	assert.Equal(t, int64(3), ev.ArticleID)
}
