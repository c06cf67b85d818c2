package config

import "os"

// System is the minimal OS interface used by config resolution.
type System interface {
	Getenv(key string) string
	UserConfigDir() (string, error)
	ReadFile(name string) ([]byte, error)
}

// RealSystem implements System using the os package.
type RealSystem struct{}

// Getenv returns the value of the environment variable named by key.
func (RealSystem) Getenv(key string) string {
	return os.Getenv(key)
}

// UserConfigDir returns $XDG_CONFIG_HOME or ~/.config.
func (RealSystem) UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// ReadFile reads the named file.
func (RealSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
