package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/philonet/rooms/room"
)

// NewThreadsCmd creates the threads command.
func NewThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List thought starters for an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID, _ := cmd.Flags().GetInt64("article")
			if articleID == 0 {
				return fmt.Errorf("--article is required")
			}
			all, _ := cmd.Flags().GetBool("all")
			pageSize, _ := cmd.Flags().GetInt("page-size")

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
				PageSize:  pageSize,
			})

			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			for all && list.HasMore() {
				if err := list.LoadMore(cmd.Context()); err != nil {
					return err
				}
			}
			if msg := list.LoadError(); msg != "" {
				return fmt.Errorf("%s", msg)
			}

			starters := list.Starters()
			if jsonOutput(cmd) {
				return writeJSON(cmd, starters)
			}

			if len(starters) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations yet")
				return nil
			}
			for _, s := range starters {
				printStarter(cmd, s)
			}
			if list.HasMore() {
				fmt.Fprintln(cmd.OutOrStdout(), "... more available (rerun with --all)")
			}
			return nil
		},
	}

	cmd.Flags().Int64("article", 0, "article id")
	cmd.Flags().Bool("all", false, "fetch every page")
	cmd.Flags().Int("page-size", 10, "starters per page")

	return cmd
}

func printStarter(cmd *cobra.Command, s room.ThoughtStarter) {
	out := cmd.OutOrStdout()

	owner := s.Author.Name
	if s.IsOwn {
		owner = "you"
	}
	fmt.Fprintf(out, "#%d  %s\n", s.CommentID, s.Title)
	fmt.Fprintf(out, "     by %s · %d messages · %d participants\n",
		owner, s.MessageCount, len(s.Participants))
	if len(s.Tags) > 0 {
		fmt.Fprintf(out, "     tags: %s\n", strings.Join(s.Tags, ", "))
	}
	if s.LastMessage != nil {
		fmt.Fprintf(out, "     last: %s: %s\n", s.LastMessage.Author, s.LastMessage.Text)
	}
}
