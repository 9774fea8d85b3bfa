// Package app holds the application context handed to every client screen
// and command: who is acting, which backend they talk to, and how.
package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/chat"
	"github.com/matheus3301/vivah/internal/config"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/matheus3301/vivah/internal/rpc"
	"go.uber.org/zap"
)

// Context is the explicit application context. It is built once at startup
// and passed down; nothing reads identity from globals.
type Context struct {
	Viewer  string
	Backend backend.Service
	Config  *config.Config
	Logger  *zap.Logger
}

// NewController returns a chat controller configured from c.
func (c *Context) NewController() *chat.Controller {
	return chat.NewController(c.Backend, c.Config.Controller(), c.Logger)
}

// Options controls Connect.
type Options struct {
	ViewerFlag string
	ConfigPath string // empty = paths.ConfigPath()
	// RequireViewer fails Connect when no viewer identity resolves.
	RequireViewer bool
	// AutoStart launches vivahd when the socket does not answer.
	AutoStart bool
	Logger    *zap.Logger
}

// Connect loads configuration, resolves the viewer and dials the daemon.
// The returned function closes the connection.
func Connect(opts Options) (*Context, func(), error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = paths.ConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	viewer, err := paths.ResolveViewer(opts.ViewerFlag, cfg)
	if err != nil && opts.RequireViewer {
		return nil, nil, err
	}

	socketPath := paths.SocketPath(cfg.DataDir)
	if opts.AutoStart && !Probe(socketPath) {
		fmt.Fprintln(os.Stderr, "daemon not running, starting...")
		if err := StartDaemon(cfgPath); err != nil {
			return nil, nil, fmt.Errorf("start daemon: %w", err)
		}
		if !WaitForDaemon(socketPath, 10*time.Second) {
			return nil, nil, fmt.Errorf("daemon did not become ready, see %s", paths.LogPath(cfg.DataDir, "vivahd"))
		}
	}

	client, err := rpc.Dial(socketPath, logger)
	if err != nil {
		return nil, nil, err
	}
	ctx := &Context{Viewer: viewer, Backend: client, Config: cfg, Logger: logger}
	return ctx, func() { _ = client.Close() }, nil
}

// Probe checks that a daemon is serving on socketPath.
func Probe(socketPath string) bool {
	c, err := rpc.Dial(socketPath, nil)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Ping(ctx)
	return err == nil
}

// StartDaemon launches vivahd detached from the terminal, preferring the
// binary next to the running executable. Its output goes to its log file.
func StartDaemon(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	vivahd := filepath.Join(filepath.Dir(executable), "vivahd")
	if _, err := os.Stat(vivahd); err != nil {
		vivahd = "vivahd"
	}

	cmd := exec.Command(vivahd, "--config", configPath, "--quiet")
	return cmd.Start()
}

// WaitForDaemon polls Probe until it succeeds or timeout elapses.
func WaitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
