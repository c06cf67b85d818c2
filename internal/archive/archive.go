// Package archive extracts tar-xz archives member by member under a safety filter.
package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// ErrUnsafePath reports an archive member rejected by the filter.
var ErrUnsafePath = errors.New(messages.ArchiveUnsafePath)

// Filter inspects a member before extraction into dest.
// It returns the header to extract (possibly with adjusted mode bits) or an error to abort.
type Filter func(hdr *tar.Header, dest string) (*tar.Header, error)

// Extractor unpacks the subset of an archive that lives under a prefix.
type Extractor struct {
	// Filter is applied to every selected member. A nil Filter extracts insecurely.
	Filter Filter

	log *logging.Logger
}

// New returns an Extractor using DataFilter.
func New(log *logging.Logger) *Extractor {
	if log == nil {
		log = logging.Nop()
	}
	return &Extractor{Filter: DataFilter, log: log}
}

// Filtered reports whether members pass through a safety filter.
func (e *Extractor) Filtered() bool {
	return e.Filter != nil
}

// Extract unpacks members of the tar-xz file at archivePath whose names start with prefix into dest.
// Members outside prefix are skipped. It returns an error when nothing matched prefix.
func (e *Extractor) Extract(ctx context.Context, archivePath string, dest string, prefix string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf(messages.ArchiveOpenFmt, archivePath, err)
	}
	defer func() { _ = file.Close() }()

	xr, err := xz.NewReader(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf(messages.ArchiveXZReaderFmt, archivePath, err)
	}
	tr := tar.NewReader(xr)

	log := e.logger()
	extracted := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		// ErrInsecurePath still yields a usable header; the filter decides what to do with it.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf(messages.ArchiveReadFmt, archivePath, err)
		}
		if !strings.HasPrefix(hdr.Name, prefix) {
			continue
		}
		if e.Filter != nil {
			hdr, err = e.Filter(hdr, dest)
			if err != nil {
				return err
			}
		}
		if err := writeMember(tr, hdr, dest); err != nil {
			return err
		}
		extracted++
	}
	if extracted == 0 {
		return fmt.Errorf(messages.ArchiveNoMembersFmt, archivePath, prefix)
	}
	log.Debug().Int("members", extracted).Str("dest", dest).Msg("Extracted archive")
	return nil
}

func (e *Extractor) logger() *logging.Logger {
	if e.log == nil {
		return logging.Nop()
	}
	return e.log
}

func writeMember(r io.Reader, hdr *tar.Header, dest string) error {
	target := filepath.Join(dest, hdr.Name)
	mode := os.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf(messages.ArchiveCreateDirFmt, target, err)
		}
		if err := os.Chmod(target, mode|0o700); err != nil {
			return fmt.Errorf(messages.ArchiveCreateDirFmt, target, err)
		}
		return nil
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf(messages.ArchiveCreateDirFmt, filepath.Dir(target), err)
		}
		if err := removeNonDir(target); err != nil {
			return fmt.Errorf(messages.ArchiveCreateFileFmt, target, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o600)
		if err != nil {
			return fmt.Errorf(messages.ArchiveCreateFileFmt, target, err)
		}
		//nolint:gosec // G110: archive comes from the runtime image host and is size-capped at download
		if _, err := io.Copy(out, r); err != nil {
			_ = out.Close()
			return fmt.Errorf(messages.ArchiveWriteFileFmt, target, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf(messages.ArchiveWriteFileFmt, target, err)
		}
		return nil
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf(messages.ArchiveCreateDirFmt, filepath.Dir(target), err)
		}
		if err := removeNonDir(target); err != nil {
			return fmt.Errorf(messages.ArchiveCreateFileFmt, target, err)
		}
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return fmt.Errorf(messages.ArchiveSymlinkFmt, target, err)
		}
		return nil
	case tar.TypeLink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf(messages.ArchiveCreateDirFmt, filepath.Dir(target), err)
		}
		if err := removeNonDir(target); err != nil {
			return fmt.Errorf(messages.ArchiveCreateFileFmt, target, err)
		}
		if err := os.Link(filepath.Join(dest, hdr.Linkname), target); err != nil {
			return fmt.Errorf(messages.ArchiveHardlinkFmt, target, err)
		}
		return nil
	default:
		// Devices, fifos, and PAX/GNU bookkeeping entries carry nothing the runtime needs.
		return nil
	}
}

func removeNonDir(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	return os.Remove(path)
}
