package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/pkg/logger"
	"github.com/philonet/rooms/room"
	"github.com/philonet/rooms/session"
)

// EventType classifies a live update
type EventType string

const (
	EventMessage    EventType = "message"
	EventReaction   EventType = "reaction"
	EventUserJoined EventType = "user_joined"
	EventUserLeft   EventType = "user_left"
)

// ReactionEvent is a live reaction change on a comment
type ReactionEvent struct {
	CommentID    int64  `json:"comment_id"`
	ReactionType string `json:"reaction_type"`
	Count        int    `json:"count"`
	UserName     string `json:"user_name"`
}

// PresenceEvent is a user joining or leaving a room
type PresenceEvent struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// Event is one frame on the live update stream
type Event struct {
	Type      EventType       `json:"type"`
	ArticleID int64           `json:"article_id,omitempty"`
	Comment   *api.SubComment `json:"comment,omitempty"`
	Reaction  *ReactionEvent  `json:"reaction,omitempty"`
	Presence  *PresenceEvent  `json:"presence,omitempty"`
}

// ToMessage converts a message event into an engine message.
// Returns false for non-message frames.
func ToMessage(e Event, selfUserID string) (*room.Message, bool) {
	if e.Type != EventMessage || e.Comment == nil {
		return nil, false
	}
	return room.MessageFromSubComment(*e.Comment, selfUserID), true
}

// Subscriber maintains a websocket to the live update stream, redialing
// with exponential backoff when the connection drops.
type Subscriber struct {
	url      string
	sessions session.Store
	dialer   *websocket.Dialer
	log      *logger.Logger
	onEvent  func(Event)

	reconnectBase time.Duration
	reconnectCap  time.Duration
	maxAttempts   int
}

// Options configures a Subscriber
type Options struct {
	URL           string
	Sessions      session.Store
	OnEvent       func(Event)
	Logger        *logger.Logger
	Dialer        *websocket.Dialer
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	MaxAttempts   int
}

// New creates a subscriber; defaults come from the stream config section
func New(opts Options) *Subscriber {
	cfg := config.Get()
	if opts.URL == "" {
		opts.URL = cfg.Stream.URL
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = cfg.Stream.ReconnectBase
	}
	if opts.ReconnectCap <= 0 {
		opts.ReconnectCap = cfg.Stream.ReconnectCap
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = cfg.Stream.MaxAttempts
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}

	return &Subscriber{
		url:           opts.URL,
		sessions:      opts.Sessions,
		dialer:        opts.Dialer,
		log:           opts.Logger,
		onEvent:       opts.OnEvent,
		reconnectBase: opts.ReconnectBase,
		reconnectCap:  opts.ReconnectCap,
		maxAttempts:   opts.MaxAttempts,
	}
}

// Run connects and consumes events until the context is cancelled or the
// reconnect attempts run out. Cancellation returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	attempts := 0
	delay := s.reconnectBase

	for {
		conn, err := s.dial(ctx)
		if err == nil {
			attempts = 0
			delay = s.reconnectBase
			err = s.readLoop(ctx, conn)
		}

		if ctx.Err() != nil {
			return nil
		}

		attempts++
		if s.maxAttempts > 0 && attempts >= s.maxAttempts {
			s.log.LogError(err, "Live update stream gave up", "attempts", attempts)
			return errors.NewNetworkError(
				fmt.Sprintf("live updates unavailable after %d attempts", attempts))
		}

		s.log.Warn("Live update stream disconnected, retrying",
			"attempt", attempts,
			"delay", delay.String(),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.reconnectCap {
			delay = s.reconnectCap
		}
	}
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.sessions != nil {
		token, err := s.sessions.Token(ctx)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock the reader when the context ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		s.onEvent(ev)
	}
}
