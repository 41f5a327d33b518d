package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/philonet/rooms/api"
)

// MessageType distinguishes normal chat messages from AI answers
type MessageType string

const (
	TypeText MessageType = "text"
	TypeAI   MessageType = "ai-response"
)

// Status is the client-local delivery state of an own optimistic message
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// aiAuthor is the display author the backend uses for generated replies
const aiAuthor = "AI Assistant"

// Markers appended to message text on delivery problems
const (
	failureMarker = " ❌ Failed to send"
	timeoutMarker = " ⏱ Send timed out"
)

// ReactionGroup is one emoji's tally on a message
type ReactionGroup struct {
	Emoji string
	Count int
	Users []string
}

// Message is one entry in a conversation thread. ID is client-assigned for
// optimistic messages (temp-/question- prefixed) and the stringified comment
// id otherwise; CommentID is the backend's authoritative id once known.
type Message struct {
	ID        string
	CommentID int64
	Text      string
	Author    string
	Avatar    string
	Timestamp time.Time
	IsOwn     bool
	Type      MessageType
	Status    Status
	Reactions []ReactionGroup

	// Denormalized reply snapshot
	ReplyToMessageID string
	ReplyToContent   string
	ReplyToAuthor    string

	Quote  string
	Edited bool
	Title  string

	// SendFailed marks an optimistic message whose dispatch failed
	SendFailed bool
}

// IsAI reports whether the message is a generated reply
func (m *Message) IsAI() bool {
	return m.Type == TypeAI || m.Author == aiAuthor
}

// Pending reports whether the message is an own message the server has not
// confirmed into a listing yet
func (m *Message) Pending() bool {
	return m.IsOwn && m.CommentID == 0 && (m.Status == StatusSending || m.Status == StatusSent || m.Status == StatusDelivered)
}

// Clone returns a deep copy; reaction slices are not shared
func (m *Message) Clone() *Message {
	out := *m
	out.Reactions = cloneReactions(m.Reactions)
	return &out
}

func cloneReactions(groups []ReactionGroup) []ReactionGroup {
	if groups == nil {
		return nil
	}
	out := make([]ReactionGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Users = append([]string(nil), g.Users...)
	}
	return out
}

// TempID builds the client id for an optimistic chat message
func TempID(t time.Time) string {
	return fmt.Sprintf("temp-%d", t.UnixMilli())
}

// QuestionID builds the client id for an optimistic AI question
func QuestionID(t time.Time) string {
	return fmt.Sprintf("question-%d", t.UnixMilli())
}

// emojiByReaction maps backend reaction types to display emoji
var emojiByReaction = map[string]string{
	"love":      "❤️",
	"heart":     "💙",
	"star":      "⭐",
	"celebrate": "👍",
	"like":      "👍",
	"laugh":     "😂",
	"surprised": "😮",
	"sad":       "😢",
	"angry":     "😡",
}

// reactionByEmoji is the reverse mapping used when dispatching a toggle.
// 👍 resolves to like; celebrate only appears in server data.
var reactionByEmoji = map[string]string{
	"❤️": "love",
	"💙": "heart",
	"⭐":  "star",
	"👍": "like",
	"😂": "laugh",
	"😮": "surprised",
	"😢": "sad",
	"😡": "angry",
}

// EmojiForReaction returns the emoji for a backend reaction type, 👍 when unknown
func EmojiForReaction(reactionType string) string {
	if emoji, ok := emojiByReaction[strings.ToLower(reactionType)]; ok {
		return emoji
	}
	return "👍"
}

// ReactionForEmoji returns the backend reaction type for an emoji, like when unknown
func ReactionForEmoji(emoji string) string {
	if rt, ok := reactionByEmoji[emoji]; ok {
		return rt
	}
	return "like"
}

// parseWireTime tolerates the backend's RFC3339 variants; a bad timestamp
// falls back to now so ordering degrades instead of breaking
func parseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

// MessageFromSubComment transforms a wire reply into a Message.
// selfUserID marks ownership; empty means ownership unknown.
func MessageFromSubComment(sc api.SubComment, selfUserID string) *Message {
	msgType := TypeText
	if sc.Title != "" {
		msgType = TypeAI
	}

	reactions := make([]ReactionGroup, 0, len(sc.Reactions))
	for _, r := range sc.Reactions {
		if r.Count <= 0 {
			continue
		}
		reactions = append(reactions, ReactionGroup{
			Emoji: EmojiForReaction(r.Type),
			Count: r.Count,
		})
	}

	msg := &Message{
		ID:        fmt.Sprintf("%d", sc.CommentID),
		CommentID: sc.CommentID,
		Text:      sc.Content,
		Author:    sc.UserName,
		Avatar:    sc.UserPicture,
		Timestamp: parseWireTime(sc.CreatedAt),
		IsOwn:     selfUserID != "" && sc.UserID == selfUserID,
		Type:      msgType,
		Status:    StatusRead,
		Reactions: reactions,
		Quote:     sc.Quote,
		Edited:    sc.Edited,
		Title:     sc.Title,
	}

	if sc.ReplyMessageID != nil {
		msg.ReplyToMessageID = fmt.Sprintf("%d", *sc.ReplyMessageID)
	}
	if sc.ReplyMessage != nil {
		msg.ReplyToContent = *sc.ReplyMessage
	}
	if sc.ParentUserName != "" {
		msg.ReplyToAuthor = sc.ParentUserName
	}

	return msg
}
