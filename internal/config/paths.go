package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".megabot"

// Paths holds resolved filesystem paths for megabot data.
type Paths struct {
	Base      string // ~/.megabot
	Config    string // ~/.megabot/config.yaml
	Data      string // ~/.megabot/data (SQLite database)
	Documents string // ~/.megabot/documents (ingestion drop dir)
	Logs      string // ~/.megabot/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If MEGABOT_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MEGABOT_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:      base,
		Config:    filepath.Join(base, "config.yaml"),
		Data:      filepath.Join(base, "data"),
		Documents: filepath.Join(base, "documents"),
		Logs:      filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Data, p.Documents, p.Logs}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
