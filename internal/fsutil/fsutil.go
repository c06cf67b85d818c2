// Package fsutil holds filesystem helpers shared by the manifest writer and the relocator.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/umu-launcher/umu-setup/internal/messages"
)

var (
	osRename     = os.Rename
	osCreateTemp = os.CreateTemp
)

// WriteFileAtomic writes data to a temp file in the same directory and renames it over filename.
// Readers observe either the old content or the new content, never a partial write.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := osCreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf(messages.FsutilCreateTempFileFmt, filename, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FsutilSetPermissionsFmt, filename, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FsutilWriteTempFileFmt, filename, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FsutilSyncTempFileFmt, filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.FsutilCloseTempFileFmt, filename, err)
	}
	if err := osRename(tmpName, filename); err != nil {
		return fmt.Errorf(messages.FsutilRenameTempFileFmt, filename, err)
	}
	committed = true
	return nil
}

// Move renames src to dst. When the two paths live on different filesystems the tree is
// copied and the source removed afterwards. An existing regular file at dst is replaced.
func Move(src string, dst string) error {
	err := osRename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := removeNonDir(dst); err != nil {
		return err
	}
	if err := CopyTree(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

func removeNonDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return os.Remove(path)
}

// CopyTree copies src to dst, preserving directory structure, file modes, and symlinks.
// dst must not already exist as a directory.
func CopyTree(src string, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
	}

	switch mode := info.Mode(); {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
		}
		return nil
	case mode.IsDir():
		if err := os.Mkdir(dst, mode.Perm()); err != nil {
			return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
		}
		for _, entry := range entries {
			if err := CopyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	case mode.IsRegular():
		return copyFile(src, dst, mode.Perm())
	default:
		return fmt.Errorf(messages.FsutilUnsupportedTypeFmt, src, mode.Type())
	}
}

func copyFile(src string, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf(messages.FsutilCopyFmt, src, dst, err)
	}
	return nil
}
