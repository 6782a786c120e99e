package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0

// (default: %USERPROFILE%/.envis on Windows, $HOME/.envis on Linux/macOS)
var EnvisDir string = GetEnvisDir()

// ConfigPath is the fixed location of the user-level config file.
var ConfigPath string = GetConfigPath()

/**
 * Get envis data directory path
 * @returns {string} Returns envis directory path
 */
func GetEnvisDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".envis")
}

func GetConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".envis.json")
}

/**
 * Get directory containing the running envis executable
 * @returns {string} Returns executable directory, empty string if unavailable
 * @description
 * - Used by the shell block writer to keep envis itself on PATH
 */
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}
