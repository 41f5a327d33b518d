package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "react <message-id> <emoji>",
		Short: "Toggle a reaction on a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, _ := cmd.Flags().GetInt64("article")
			threadID, _ := cmd.Flags().GetInt64("thread")
			if articleID == 0 || threadID == 0 {
				return fmt.Errorf("--article and --thread are required")
			}
			messageID, emoji := args[0], args[1]

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

			// The server response overwrites the optimistic count; a
			// failed dispatch already rolled the message back.
			if err := engine.ToggleReaction(cmd.Context(), messageID, emoji); err != nil {
				return err
			}

			for _, m := range engine.Snapshot() {
				if m.ID != messageID {
					continue
				}
				for _, r := range m.Reactions {
					if r.Emoji == emoji {
						fmt.Fprintf(cmd.OutOrStdout(), "%s now at %d\n", emoji, r.Count)
						return nil
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", emoji)
			return nil
		},
	}

	cmd.Flags().Int64("article", 0, "article id")
	cmd.Flags().Int64("thread", 0, "thought starter comment id")

	return cmd
}
