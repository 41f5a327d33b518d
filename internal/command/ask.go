package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/room"
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the AI assistant about the article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, _ := cmd.Flags().GetInt64("article")
			threadID, _ := cmd.Flags().GetInt64("thread")
			summary, _ := cmd.Flags().GetString("summary")
			if articleID == 0 || threadID == 0 {
				return fmt.Errorf("--article and --thread are required")
			}
			if summary == "" {
				return fmt.Errorf("--summary is required; the assistant answers against the article summary")
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

			engine := threadEngine(ctx, user, articleID, threadID, summary)

			questionID, err := engine.AskAI(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var answer *room.Message
			ok := waitSettled(cmd.Context(), engine, func(msgs []*room.Message) bool {
				for _, m := range msgs {
					if m.ID == questionID && m.SendFailed {
						return true
					}
					if m.IsAI() {
						answer = m
						return true
					}
				}
				return false
			})
			if !ok {
				return fmt.Errorf("timed out waiting for an answer")
			}
			if answer == nil {
				return fmt.Errorf("the assistant could not answer")
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, answer)
			}
			if answer.Title != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", answer.Title)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
			return nil
		},
	}

	cmd.Flags().Int64("article", 0, "article id")
	cmd.Flags().Int64("thread", 0, "thought starter comment id")
	cmd.Flags().String("summary", "", "article summary given to the assistant")

	return cmd
}
