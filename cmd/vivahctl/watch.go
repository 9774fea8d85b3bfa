package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/vivah/internal/chat"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversation>",
		Short: "Follow a conversation and print it on every change until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, closeFn, err := opts.connect(true)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			updates := make(chan []chat.Message, 1)
			ctrl := ac.NewController()
			ctrl.SetOnMessages(func(msgs []chat.Message) {
				// Keep only the latest list.
				select {
				case <-updates:
				default:
				}
				updates <- msgs
			})
			ctrl.SetOnHeader(func(h chat.Header) {
				if !opts.JSON {
					_, _ = fmt.Fprintf(out, "== %s ==\n", h.Name)
				}
			})

			if err := ctrl.Enter(ctx, ac.Viewer, args[0]); err != nil {
				return err
			}
			defer ctrl.Exit()
			return watchLoop(ctx, updates, func(msgs []chat.Message) error {
				if opts.JSON {
					return outputJSON(out, msgs)
				}
				_, _ = fmt.Fprintf(out, "-- %d messages (feed %s) --\n", len(msgs), ctrl.SubscriptionStatus())
				printMessages(out, msgs, ac.Viewer)
				return nil
			})
		},
	}
}

func watchLoop(ctx context.Context, updates <-chan []chat.Message, print func([]chat.Message) error) error {
	for {
		select {
		case msgs := <-updates:
			if err := print(msgs); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
