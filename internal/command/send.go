package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/room"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Post a reply into a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, _ := cmd.Flags().GetInt64("article")
			threadID, _ := cmd.Flags().GetInt64("thread")
			if articleID == 0 || threadID == 0 {
				return fmt.Errorf("--article and --thread are required")
			}
			quote, _ := cmd.Flags().GetString("quote")
			replyTo, _ := cmd.Flags().GetString("reply-to")

			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			user, err := requireUser(cmd.Context(), ctx.Sessions)
			if err != nil {
				return err
			}

			engine := threadEngine(ctx, user, articleID, threadID, "")
			if err := engine.Refresh(cmd.Context()); err != nil {
				return err
			}

			req := room.SendRequest{Text: args[0], TaggedQuote: quote}
			if replyTo != "" {
				for _, m := range engine.Snapshot() {
					if m.ID == replyTo {
						req.ReplyToMessageID = m.ID
						req.ReplyToContent = m.Text
						req.ReplyToAuthor = m.Author
						break
					}
				}
				if req.ReplyToMessageID == "" {
					return fmt.Errorf("message %s not found in thread", replyTo)
				}
			}

			msgID, err := engine.Send(cmd.Context(), req)
			if err != nil {
				return err
			}

			var sent *room.Message
			ok := waitSettled(cmd.Context(), engine, func(msgs []*room.Message) bool {
				for _, m := range msgs {
					if m.ID == msgID {
						sent = m
						return m.CommentID != 0 || m.SendFailed
					}
				}
				return false
			})
			if !ok || sent == nil || sent.SendFailed {
				return fmt.Errorf("message was not confirmed by the server")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent as comment %d\n", sent.CommentID)
			return nil
		},
	}

	cmd.Flags().Int64("article", 0, "article id")
	cmd.Flags().Int64("thread", 0, "thought starter comment id")
	cmd.Flags().String("quote", "", "highlighted article text to attach")
	cmd.Flags().String("reply-to", "", "message id being replied to")

	return cmd
}
