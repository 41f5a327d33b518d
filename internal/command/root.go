package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "roomsctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd assembles the CLI command tree
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Roomsctl - CLI for article discussion rooms",
		Long:          "Roomsctl drives the rooms backend from the terminal: sign in, browse thought starters, read threads, post replies, react, and ask the AI assistant.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("server", "", "backend base URL (overrides ROOMS_BASE_URL)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewLoginCmd(),
		NewSignupCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewThreadsCmd(),
		NewOpenCmd(),
		NewSendCmd(),
		NewReactCmd(),
		NewAskCmd(),
		NewWatchCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd(Version).Execute()
}
