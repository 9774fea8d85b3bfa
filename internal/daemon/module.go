package daemon

import (
	"context"

	"github.com/matheus3301/vivah/internal/backend"
	"github.com/matheus3301/vivah/internal/bus"
	"github.com/matheus3301/vivah/internal/config"
	"github.com/matheus3301/vivah/internal/lock"
	"github.com/matheus3301/vivah/internal/logging"
	"github.com/matheus3301/vivah/internal/paths"
	"github.com/matheus3301/vivah/internal/rpc"
	"github.com/matheus3301/vivah/internal/status"
	"github.com/matheus3301/vivah/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon settings passed to the fx module.
type Params struct {
	ConfigPath string // empty = paths.ConfigPath()
	DataDir    string // overrides config data_dir when set
	SocketPath string // optional override for testing; empty = use default
	Quiet      bool   // log to file only
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideBackend,
			provideRPC,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = paths.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p.DataDir != "" {
		cfg.DataDir = p.DataDir
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	if err := paths.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:      paths.LogPath(cfg.DataDir, "vivahd"),
		Component: "vivahd",
		Level:     cfg.LogLevel,
		Console:   !p.Quiet,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	path := paths.LockPath(cfg.DataDir)
	socket := p.SocketPath
	if socket == "" {
		socket = paths.SocketPath(cfg.DataDir)
	}
	logger.Info("acquiring data directory lock", zap.String("path", path))
	l, err := lock.Acquire(path, socket)
	if err != nil {
		return nil, err
	}
	logger.Info("data directory lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is never opened by a second
// daemon.
func provideStore(cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := paths.DBPath(cfg.DataDir)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed() {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(db *store.DB, b *bus.Bus, logger *zap.Logger) *backend.Local {
	return backend.NewLocal(db, b, logger.Named("backend"))
}

func provideRPC(local *backend.Local, m *status.Machine, logger *zap.Logger) *rpc.Server {
	return rpc.NewServer(local, m, logger.Named("rpc"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	var stopActivity func()
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			stopActivity = logActivity(b, logger.Named("activity"))

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()
			return machine.Transition(status.Serving)
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			srv.Stop(ctx)
			if stopActivity != nil {
				stopActivity()
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
