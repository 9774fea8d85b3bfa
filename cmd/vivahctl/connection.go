package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/spf13/cobra"
)

func newConnectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <receiver>",
		Short: "Send a connection request from the viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := paths.ValidateID(args[0]); err != nil {
				return err
			}
			ac, closeFn, err := opts.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			conn, err := ac.Backend.RequestConnection(cmd.Context(), ac.Viewer, args[0])
			if err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), conn)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connection %s: %s -> %s (%s)\n", conn.ID, conn.SenderID, conn.ReceiverID, conn.State)
			return nil
		},
	}
}

var respondStates = map[string]chat.ConnectionState{
	"accept":  chat.ConnectionAccepted,
	"decline": chat.ConnectionDeclined,
	"block":   chat.ConnectionBlocked,
}

func newRespondCommand(opts *rootOptions, verb string) *cobra.Command {
	state := respondStates[verb]
	return &cobra.Command{
		Use:   verb + " <connection>",
		Short: fmt.Sprintf("Mark a connection request %s", state),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, closeFn, err := opts.connect(false)
			if err != nil {
				return err
			}
			defer closeFn()

			conn, conv, err := ac.Backend.RespondConnection(cmd.Context(), args[0], state)
			if err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), map[string]any{"connection": conn, "conversation": conv})
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Connection %s is %s\n", conn.ID, conn.State)
			if conv != nil {
				_, _ = fmt.Fprintf(out, "Conversation %s opened\n", conv.ID)
			}
			return nil
		},
	}
}

func newConnectionsCommand(opts *rootOptions) *cobra.Command {
	var (
		pending bool
		state   string
		with    string
	)
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List the viewer's connections, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac, closeFn, err := opts.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if with != "" {
				conn, err := ac.Backend.ConnectionBetween(cmd.Context(), ac.Viewer, with)
				if err != nil {
					return err
				}
				if opts.JSON {
					return outputJSON(out, conn)
				}
				_, _ = fmt.Fprintf(out, "Connection %s: %s -> %s (%s)\n", conn.ID, conn.SenderID, conn.ReceiverID, conn.State)
				return nil
			}

			list, err := listConnections(cmd.Context(), ac.Backend, ac.Viewer, pending, chat.ConnectionState(state))
			if err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(out, list)
			}
			return printConnections(out, list, ac.Viewer, ac.Config.PlaceholderName)
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only requests waiting for your response")
	cmd.Flags().StringVar(&state, "state", "", "only connections in this state (pending, accepted, declined, blocked)")
	cmd.Flags().StringVar(&with, "with", "", "show the connection with this member")
	cmd.MarkFlagsMutuallyExclusive("pending", "state", "with")
	return cmd
}

func listConnections(ctx context.Context, d backend.Directory, viewer string, pending bool, state chat.ConnectionState) ([]chat.ConnectionDetail, error) {
	if pending {
		return d.PendingRequests(ctx, viewer)
	}
	return d.ListConnections(ctx, viewer, state)
}

func printConnections(w io.Writer, list []chat.ConnectionDetail, viewer, placeholder string) error {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No connections.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tWITH\tDIRECTION\tSTATE\tSINCE\tCONVERSATION")
	for i := range list {
		d := &list[i]
		name := d.Counterpart(viewer).DisplayName()
		if name == "" {
			name = placeholder
		}
		direction := "sent"
		if d.Incoming(viewer) {
			direction = "received"
		}
		conv := d.ConversationID
		if conv == "" {
			conv = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Connection.ID, name, direction, d.Connection.State, formatTime(d.Connection.CreatedAt), conv)
	}
	return tw.Flush()
}
