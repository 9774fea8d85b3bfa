package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/matheus3301/vivah/internal/chat"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConversationsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List the viewer's conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ac, closeFn, err := opts.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := ac.NewController().Conversations(cmd.Context(), ac.Viewer)
			if err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No conversations.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tWITH\tLAST\tUNREAD\tPREVIEW")
			for _, d := range list {
				name := d.Counterpart(ac.Viewer).DisplayName()
				if name == "" {
					name = ac.Config.PlaceholderName
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					d.Conversation.ID, name, formatTime(d.Conversation.LastMessageAt), d.UnreadCount, d.Conversation.LastMessagePreview)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <conversation>",
		Short: "Print recent messages, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, closeFn, err := opts.connect(false)
			if err != nil {
				return err
			}
			defer closeFn()

			if limit <= 0 {
				limit = ac.Config.HistoryLimit
			}
			s := chat.NewSynchronizer(ac.Backend, args[0], chat.WithLogger(ac.Logger))
			if err := s.LoadInitial(cmd.Context(), limit); err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), s.Messages())
			}
			printMessages(cmd.OutOrStdout(), s.Messages(), ac.Viewer)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of messages (default history_limit)")
	return cmd
}

func newSendCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation> <text>",
		Short: "Send a message as the viewer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, closeFn, err := opts.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			confirmed, err := send(cmd.Context(), ac.Backend, ac.Logger, ac.Config.PreviewLength, ac.Viewer, args[0], args[1])
			if err != nil {
				return err
			}
			if opts.JSON {
				return outputJSON(cmd.OutOrStdout(), confirmed)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent %s at %s\n", confirmed.ID, formatTime(confirmed.CreatedAt))
			return nil
		},
	}
}

// send posts content the way the conversation screen does and waits for
// the durable insert.
func send(ctx context.Context, b chat.Backend, logger *zap.Logger, previewLen int, viewer, conversationID, content string) (chat.Message, error) {
	s := chat.NewSynchronizer(b, conversationID, chat.WithLogger(logger), chat.WithPreviewLength(previewLen))
	pending, err := s.Send(ctx, viewer, content)
	if err != nil {
		return chat.Message{}, err
	}
	s.Wait()
	if s.Failed(pending.ID) {
		return chat.Message{}, fmt.Errorf("send to %s failed, see the daemon log", conversationID)
	}
	for _, m := range s.Messages() {
		if m.ClientToken == pending.ClientToken && m.Status == chat.Confirmed {
			return m, nil
		}
	}
	return pending, nil
}
