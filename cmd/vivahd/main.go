package main

import (
	"flag"

	"github.com/matheus3301/vivah/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.vivah/config.toml)")
	dataDir := flag.String("data-dir", "", "data directory (overrides config data_dir)")
	quiet := flag.Bool("quiet", false, "log to file only")
	flag.Parse()

	app := fx.New(
		fx.NopLogger,
		daemon.Module(daemon.Params{
			ConfigPath: *configPath,
			DataDir:    *dataDir,
			Quiet:      *quiet,
		}),
	)

	app.Run()
}
