package main

import (
	"github.com/matheus3301/vivah/internal/app"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Viewer string
	Config string
	JSON   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vivahctl",
		Short:         "Command-line client for the vivah chat daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Viewer, "viewer", "", "acting profile id (overrides config viewer_id)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default ~/.vivah/config.toml)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "output in JSON format")

	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newProfileCommand(opts))
	cmd.AddCommand(newConnectCommand(opts))
	cmd.AddCommand(newConnectionsCommand(opts))
	for _, verb := range []string{"accept", "decline", "block"} {
		cmd.AddCommand(newRespondCommand(opts, verb))
	}
	cmd.AddCommand(newConversationsCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))

	return cmd
}

// connect dials the daemon. Commands acting as a member pass requireViewer.
func (o *rootOptions) connect(requireViewer bool) (*app.Context, func(), error) {
	return app.Connect(app.Options{
		ViewerFlag:    o.Viewer,
		ConfigPath:    o.Config,
		RequireViewer: requireViewer,
	})
}
