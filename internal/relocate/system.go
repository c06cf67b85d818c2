package relocate

import (
	"os"

	"github.com/umu-launcher/umu-setup/internal/fsutil"
)

// System abstracts filesystem operations needed by the relocator.
type System interface {
	Lstat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	RemoveAll(path string) error
	Move(src string, dst string) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Lstat returns a FileInfo describing the named file without following symlinks.
func (RealSystem) Lstat(name string) (os.FileInfo, error) {
	return os.Lstat(name)
}

// ReadDir reads the named directory.
func (RealSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// RemoveAll removes path and any children it contains.
func (RealSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Move renames src to dst, copying across filesystems when needed.
func (RealSystem) Move(src string, dst string) error {
	return fsutil.Move(src, dst)
}
