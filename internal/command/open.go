package command

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/room"
)

// NewOpenCmd creates the open command.
func NewOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <comment-id>",
		Short: "Read the replies in a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commentID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid comment id %q", args[0])
			}
			articleID, _ := cmd.Flags().GetInt64("article")
			if articleID == 0 {
				return fmt.Errorf("--article is required")
			}

			ctx, err := newCmdContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Close()

			user, err := requireUser(cmd.Context(), ctx.Sessions)
			if err != nil {
				return err
			}

			list := room.NewThreadList(ctx.Client, room.ThreadListOptions{
				ArticleID: articleID,
				SelfID:    formatUserID(user.ID),
				SelfName:  user.Name,
			})

			engine, err := list.Open(cmd.Context(), commentID)
			if err != nil {
				return err
			}

			msgs := engine.Snapshot()
			if jsonOutput(cmd) {
				return writeJSON(cmd, msgs)
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No replies yet")
				return nil
			}
			for _, m := range msgs {
				printMessage(cmd, m)
			}
			return nil
		},
	}

	cmd.Flags().Int64("article", 0, "article id")

	return cmd
}

func printMessage(cmd *cobra.Command, m *room.Message) {
	out := cmd.OutOrStdout()

	author := m.Author
	if m.IsOwn {
		author = "you"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), author, m.Text)
	if m.Quote != "" {
		fmt.Fprintf(out, "      > %s\n", m.Quote)
	}
	for _, r := range m.Reactions {
		fmt.Fprintf(out, "      %s %d\n", r.Emoji, r.Count)
	}
}
