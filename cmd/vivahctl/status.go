package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/vivah/internal/config"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/matheus3301/vivah/internal/rpc"
	"github.com/spf13/cobra"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath := opts.Config
			if cfgPath == "" {
				cfgPath = paths.ConfigPath()
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			socket := paths.SocketPath(cfg.DataDir)
			c, err := rpc.Dial(socket, nil)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			res, err := c.Ping(ctx)
			if err != nil {
				return fmt.Errorf("daemon not reachable on %s: %w", socket, err)
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				return outputJSON(out, map[string]any{
					"status":    res.Status,
					"since":     formatTime(res.Since),
					"uptime_ms": res.Uptime.Milliseconds(),
					"socket":    socket,
				})
			}
			_, _ = fmt.Fprintf(out, "Status: %s (since %s)\n", res.Status, formatTime(res.Since))
			_, _ = fmt.Fprintf(out, "Uptime: %s\n", res.Uptime.Round(time.Second))
			_, _ = fmt.Fprintf(out, "Socket: %s\n", socket)
			return nil
		},
	}
}
