package config

import (
	"os"
	"path/filepath"
)

// AlmPath returns the root directory for ALM data.
// It uses $ALM_PATH if set, otherwise defaults to ~/.alm.
func AlmPath() string {
	if v := os.Getenv("ALM_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".alm")
	}
	return filepath.Join(home, ".alm")
}

// ConfigPath returns the path to the ALM config file.
func ConfigPath() string {
	return filepath.Join(AlmPath(), "config.jsonc")
}

// DotenvPath returns the path to the ALM .env file.
func DotenvPath() string {
	return filepath.Join(AlmPath(), ".env")
}

// HeartbeatPath returns the path to the liveness file the serve command
// keeps fresh.
func HeartbeatPath() string {
	return filepath.Join(AlmPath(), "heartbeat.json")
}

// LogsDir returns the directory task and dispatch logs are appended to.
func LogsDir() string {
	return filepath.Join(AlmPath(), "logs")
}
