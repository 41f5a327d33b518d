package ws

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/logger"
)

// Event is one frame pushed to live subscribers. The shape matches what
// the client-side stream package decodes.
type Event struct {
	Type      string          `json:"type"`
	ArticleID int64           `json:"article_id,omitempty"`
	Comment   *api.SubComment `json:"comment,omitempty"`
	Reaction  *ReactionEvent  `json:"reaction,omitempty"`
	Presence  *PresenceEvent  `json:"presence,omitempty"`
}

// ReactionEvent is a live reaction change on a comment
type ReactionEvent struct {
	CommentID    int64  `json:"comment_id"`
	ReactionType string `json:"reaction_type"`
	Count        int    `json:"count"`
	UserName     string `json:"user_name"`
}

// PresenceEvent is a user joining or leaving an article room
type PresenceEvent struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn      *websocket.Conn
	articleID int64
	send      chan Event
}

// Hub fans comment and reaction changes out to the websocket subscribers
// of each article room.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	log     *logger.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan Event
}

// NewHub creates a hub; call Run before serving connections
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		log:        log,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 64),
	}
}

// Run dispatches registrations and broadcasts; meant to run as a goroutine
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if ev.ArticleID != 0 && c.articleID != 0 && c.articleID != ev.ArticleID {
					continue
				}
				select {
				case c.send <- ev:
				default:
					// Slow consumer; drop it rather than block the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ActiveConnections returns the number of connected subscribers
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CommentAdded implements service.Notifier
func (h *Hub) CommentAdded(articleID uint, row api.SubComment) {
	h.broadcast <- Event{
		Type:      "message",
		ArticleID: int64(articleID),
		Comment:   &row,
	}
}

// ReactionChanged implements service.Notifier
func (h *Hub) ReactionChanged(articleID uint, commentID uint, reactionType string, count int, userName string) {
	h.broadcast <- Event{
		Type:      "reaction",
		ArticleID: int64(articleID),
		Reaction: &ReactionEvent{
			CommentID:    int64(commentID),
			ReactionType: reactionType,
			Count:        count,
			UserName:     userName,
		},
	}
}

// Handler upgrades the request and subscribes it to an article room.
// The article is selected with the article_id query parameter; zero
// subscribes to every room.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		articleID, _ := strconv.ParseInt(c.Query("article_id"), 10, 64)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("WebSocket upgrade failed", "error", err.Error())
			return
		}

		cl := &client{conn: conn, articleID: articleID, send: make(chan Event, 16)}
		h.register <- cl

		go h.writeLoop(cl)
		go h.readLoop(cl)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// readLoop drains the connection so pings and closes are processed
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
