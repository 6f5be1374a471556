package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns the default file locations. Each is resolved from the
// first source that is set:
//   - config_path: $WHATSUP_CONFIG_PATH, $XDG_CONFIG_HOME/whatsup.toml, ~/.config/whatsup.toml
//   - base_dir: $WHATSUP_HOME, $XDG_DATA_HOME/whatsup, ~/.local/share/whatsup
//
// log_dir and db_dir live under base_dir.
func GetDefaults() (map[string]string, error) {
	configPath, err := resolvePath("WHATSUP_CONFIG_PATH", "XDG_CONFIG_HOME", "whatsup.toml", ".config")
	if err != nil {
		return nil, err
	}

	baseDir, err := resolvePath("WHATSUP_HOME", "XDG_DATA_HOME", "whatsup", ".local", "share")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"db_dir":      filepath.Join(baseDir, "db"),
	}, nil
}

// resolvePath returns $override verbatim, else name under $xdgVar, else name
// under the home directory joined with homeParts.
func resolvePath(override, xdgVar, name string, homeParts ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, homeParts...), name)...), nil
}
