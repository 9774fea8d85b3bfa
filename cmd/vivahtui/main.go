package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/vivah/internal/app"
	"github.com/matheus3301/vivah/internal/config"
	"github.com/matheus3301/vivah/internal/logging"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/matheus3301/vivah/internal/tui"
	"go.uber.org/zap"
)

func main() {
	viewerFlag := flag.String("viewer", "", "acting profile id (overrides config viewer_id)")
	configPath := flag.String("config", "", "config file (default ~/.vivah/config.toml)")
	flag.Parse()

	if err := run(*viewerFlag, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(viewerFlag, configPath string) error {
	logger := zap.NewNop()
	if cfg, err := config.Load(orDefault(configPath)); err == nil {
		// The terminal belongs to tview, so logs go to the file only.
		l, err := logging.New(logging.Options{
			Path:      paths.LogPath(cfg.DataDir, "vivahtui"),
			Component: "vivahtui",
			Level:     cfg.LogLevel,
		})
		if err == nil {
			logger = l
			defer func() { _ = l.Sync() }()
		}
	}

	ac, closeFn, err := app.Connect(app.Options{
		ViewerFlag:    viewerFlag,
		ConfigPath:    configPath,
		RequireViewer: true,
		AutoStart:     true,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer closeFn()

	logger.Info("tui starting", zap.String("viewer_id", ac.Viewer))
	return tui.NewApp(ac).Run()
}

func orDefault(configPath string) string {
	if configPath == "" {
		return paths.ConfigPath()
	}
	return configPath
}
