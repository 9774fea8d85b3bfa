package paths

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "VIVAH_HOME"

// BaseDir returns $VIVAH_HOME or ~/.vivah.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vivah")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// DataDir returns dataDir, or the default data directory when it is empty.
func DataDir(dataDir string) string {
	if dataDir != "" {
		return dataDir
	}
	return filepath.Join(BaseDir(), "data")
}

// SocketPath returns the daemon's UDS socket path.
func SocketPath(dataDir string) string {
	return filepath.Join(DataDir(dataDir), "vivahd.sock")
}

// LockPath returns the daemon lock file path.
func LockPath(dataDir string) string {
	return filepath.Join(DataDir(dataDir), "LOCK")
}

// DBPath returns the SQLite database path.
func DBPath(dataDir string) string {
	return filepath.Join(DataDir(dataDir), "vivah.db")
}

// LogDir returns the log directory.
func LogDir(dataDir string) string {
	return filepath.Join(DataDir(dataDir), "logs")
}

// LogPath returns the log file path for a program such as "vivahd".
func LogPath(dataDir, program string) string {
	return filepath.Join(LogDir(dataDir), program+".log")
}

// EnsureDir creates the data directory tree with proper permissions.
func EnsureDir(dataDir string) error {
	for _, d := range []string{DataDir(dataDir), LogDir(dataDir)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
