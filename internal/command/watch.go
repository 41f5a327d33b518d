package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/room"
	"github.com/philonet/rooms/stream"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live updates for an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, _ := cmd.Flags().GetInt64("article")
			url, _ := cmd.Flags().GetString("url")

			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			user, err := requireUser(cmd.Context(), ctx.Sessions)
			if err != nil {
				return err
			}
			selfID := formatUserID(user.ID)

			out := cmd.OutOrStdout()
			sub := stream.New(stream.Options{
				URL:      url,
				Sessions: ctx.Sessions,
				OnEvent: func(e stream.Event) {
					if articleID != 0 && e.ArticleID != 0 && e.ArticleID != articleID {
						return
					}
					printEvent(cmd, e, selfID)
				},
			})

			fmt.Fprintln(out, "Watching for live updates (ctrl-c to stop)")
			return sub.Run(cmd.Context())
		},
	}

	cmd.Flags().Int64("article", 0, "only show events for this article (0 = all)")
	cmd.Flags().String("url", "", "stream URL (overrides ROOMS_STREAM_URL)")

	return cmd
}

func printEvent(cmd *cobra.Command, e stream.Event, selfID string) {
	out := cmd.OutOrStdout()

	switch e.Type {
	case stream.EventMessage:
		if msg, ok := stream.ToMessage(e, selfID); ok {
			printMessage(cmd, msg)
		}
	case stream.EventReaction:
		if e.Reaction != nil {
			fmt.Fprintf(out, "%s reacted %s on #%d (now %d)\n",
				e.Reaction.UserName,
				room.EmojiForReaction(e.Reaction.ReactionType),
				e.Reaction.CommentID,
				e.Reaction.Count)
		}
	case stream.EventUserJoined:
		if e.Presence != nil {
			fmt.Fprintf(out, "%s joined\n", e.Presence.UserName)
		}
	case stream.EventUserLeft:
		if e.Presence != nil {
			fmt.Fprintf(out, "%s left\n", e.Presence.UserName)
		}
	}
}
