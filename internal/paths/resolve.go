package paths

import (
	"errors"

	"github.com/matheus3301/vivah/internal/config"
)

// ErrNoViewer is returned when no viewer identity is configured.
var ErrNoViewer = errors.New("no viewer: pass --viewer or set viewer_id in config.toml")

// ResolveViewer determines the acting profile using precedence:
// 1. flagOverride (--viewer flag)
// 2. config.toml viewer_id
func ResolveViewer(flagOverride string, cfg *config.Config) (string, error) {
	viewer := flagOverride
	if viewer == "" && cfg != nil {
		viewer = cfg.ViewerID
	}
	if viewer == "" {
		return "", ErrNoViewer
	}
	if err := ValidateID(viewer); err != nil {
		return "", err
	}
	return viewer, nil
}
