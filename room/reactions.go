package room

import (
	"context"
	"strconv"

	"github.com/philonet/rooms/api"
	"github.com/philonet/rooms/pkg/errors"
)

// ToggleReaction flips the caller's reaction on a message. The local state
// updates immediately; the server response overwrites it with the
// authoritative count, and a failed dispatch rolls the message back.
func (e *Engine) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	e.mu.Lock()
	msg := e.findLocked(messageID)
	if msg == nil {
		e.mu.Unlock()
		return errors.NewValidationError("unknown message " + messageID)
	}

	commentID := msg.CommentID
	if commentID == 0 {
		if parsed, err := strconv.ParseInt(msg.ID, 10, 64); err == nil {
			commentID = parsed
		}
	}

	saved := cloneReactions(msg.Reactions)
	applyToggle(msg, emoji, e.selfID)
	e.mu.Unlock()
	e.notify()

	if commentID == 0 {
		// Unconfirmed message; nothing to tell the backend yet
		return nil
	}

	resp, err := e.be.ToggleReaction(ctx, api.ToggleReactionParams{
		TargetType:   "comment",
		TargetID:     commentID,
		ReactionType: ReactionForEmoji(emoji),
	})

	e.mu.Lock()
	msg = e.findLocked(messageID)
	if msg == nil {
		e.mu.Unlock()
		return err
	}

	if err != nil {
		msg.Reactions = saved
		reactionRollbacks.Inc()
		e.addNotice("Failed to update reaction", "reaction", e.cfg.NoticeTTL)
		e.mu.Unlock()
		e.notify()
		return err
	}

	reconcileReaction(msg, emoji, e.selfID, resp)
	e.mu.Unlock()
	e.notify()
	return nil
}

// applyToggle adds or removes the user's membership in the emoji's group
func applyToggle(msg *Message, emoji, user string) {
	for i := range msg.Reactions {
		g := &msg.Reactions[i]
		if g.Emoji != emoji {
			continue
		}
		if idx := indexOf(g.Users, user); idx >= 0 {
			g.Users = append(g.Users[:idx], g.Users[idx+1:]...)
			g.Count--
			if g.Count <= 0 {
				msg.Reactions = append(msg.Reactions[:i], msg.Reactions[i+1:]...)
			}
		} else {
			g.Users = append(g.Users, user)
			g.Count++
		}
		return
	}

	msg.Reactions = append(msg.Reactions, ReactionGroup{
		Emoji: emoji,
		Count: 1,
		Users: []string{user},
	})
}

// reconcileReaction overwrites the emoji's group with the server tally
func reconcileReaction(msg *Message, emoji, user string, resp *api.ToggleReactionResponse) {
	for i := range msg.Reactions {
		g := &msg.Reactions[i]
		if g.Emoji != emoji {
			continue
		}

		if resp.ReactionCount <= 0 {
			msg.Reactions = append(msg.Reactions[:i], msg.Reactions[i+1:]...)
			return
		}

		g.Count = resp.ReactionCount
		idx := indexOf(g.Users, user)
		if resp.UserReacted && idx < 0 {
			g.Users = append(g.Users, user)
		}
		if !resp.UserReacted && idx >= 0 {
			g.Users = append(g.Users[:idx], g.Users[idx+1:]...)
		}
		return
	}

	if resp.ReactionCount > 0 {
		group := ReactionGroup{Emoji: emoji, Count: resp.ReactionCount}
		if resp.UserReacted {
			group.Users = []string{user}
		}
		msg.Reactions = append(msg.Reactions, group)
	}
}

func indexOf(users []string, user string) int {
	for i, u := range users {
		if u == user {
			return i
		}
	}
	return -1
}
