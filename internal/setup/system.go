package setup

import (
	"os"

	"github.com/umu-launcher/umu-setup/internal/manifest"
)

// System is the filesystem seam used by the engine. It extends the manifest System
// with the directory operations reconciliation needs.
type System interface {
	manifest.System
	ReadDir(name string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	RemoveAll(path string) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct {
	manifest.RealSystem
}

// ReadDir reads the named directory, returning its entries sorted by filename.
func (RealSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// RemoveAll removes path and any children it contains.
func (RealSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
