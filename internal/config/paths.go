package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "CADTOH5M_CONFIG"
	// ConfigFileName is looked up next to job files and in the working directory
	ConfigFileName = "cadtoh5m.yaml"
	// ConfigDirName is the directory under the user and system config roots
	ConfigDirName = "cadtoh5m"
)

// SearchPaths lists candidate config files, highest priority first:
// $CADTOH5M_CONFIG, cadtoh5m.yaml beside jobFile, ./cadtoh5m.yaml, the
// user config directory, then /etc/cadtoh5m. jobFile may be empty.
func SearchPaths(jobFile string) []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if jobFile != "" {
		paths = append(paths, filepath.Join(filepath.Dir(jobFile), ConfigFileName))
	}
	paths = append(paths, ConfigFileName)
	if dir := userConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, ConfigDirName, "config.yaml"))
	}
	paths = append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
	return dedupe(paths)
}

// FindConfigPath returns the first existing file from SearchPaths as an
// absolute path, or "" when there is none.
func FindConfigPath(jobFile string) string {
	for _, p := range SearchPaths(jobFile) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the parent directory of configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

// dedupe drops repeats, which happen when the job file sits in the
// working directory
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
