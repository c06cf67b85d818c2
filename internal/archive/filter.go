package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/umu-launcher/umu-setup/internal/messages"
)

// DataFilter rejects members that would land outside dest or are not plain data:
// absolute names, ".." traversal, links pointing outside dest, and device or fifo nodes.
// Paths are also resolved against what is already on disk under dest, so a member cannot
// reach outside through a link extracted before it.
// Accepted members lose setuid, setgid, sticky, and group/other write bits.
func DataFilter(hdr *tar.Header, dest string) (*tar.Header, error) {
	name := hdr.Name
	if filepath.IsAbs(name) {
		return nil, unsafeMember(name, messages.ArchiveReasonAbsolute)
	}
	target := filepath.Join(dest, name)
	if !within(dest, target) {
		return nil, unsafeMember(name, messages.ArchiveReasonTraversal)
	}

	switch hdr.Typeflag {
	case tar.TypeReg, tar.TypeDir, tar.TypeSymlink, tar.TypeLink:
	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		return nil, unsafeMember(name, messages.ArchiveReasonSpecial)
	default:
		return hdr, nil
	}

	realDest, err := resolve(dest)
	if err != nil {
		return nil, unsafeMember(name, messages.ArchiveReasonResolved)
	}
	// MkdirAll follows a link sitting at a directory's own path; other members replace it.
	landing := filepath.Dir(target)
	if hdr.Typeflag == tar.TypeDir {
		landing = target
	}
	parent, err := resolve(landing)
	if err != nil || !within(realDest, parent) {
		return nil, unsafeMember(name, messages.ArchiveReasonResolved)
	}

	switch hdr.Typeflag {
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) || !within(dest, filepath.Join(filepath.Dir(target), hdr.Linkname)) {
			return nil, unsafeMember(name, messages.ArchiveReasonLinkTarget)
		}
		// The kernel reads the link relative to its real directory without lexical cleaning.
		linkDir, err := resolve(filepath.Dir(target))
		if err != nil {
			return nil, unsafeMember(name, messages.ArchiveReasonLinkTarget)
		}
		resolved, err := resolve(linkDir + string(filepath.Separator) + hdr.Linkname)
		if err != nil || !within(realDest, resolved) {
			return nil, unsafeMember(name, messages.ArchiveReasonLinkTarget)
		}
	case tar.TypeLink:
		source := filepath.Join(dest, hdr.Linkname)
		if filepath.IsAbs(hdr.Linkname) || !within(dest, source) {
			return nil, unsafeMember(name, messages.ArchiveReasonLinkTarget)
		}
		resolved, err := resolve(source)
		if err != nil || !within(realDest, resolved) {
			return nil, unsafeMember(name, messages.ArchiveReasonLinkTarget)
		}
	}

	clean := *hdr
	clean.Mode = hdr.Mode &^ 0o7022
	return &clean, nil
}

func unsafeMember(name string, reason string) error {
	return fmt.Errorf(messages.ArchiveUnsafeFmt, ErrUnsafePath, name, reason)
}

// resolve evaluates links in the longest existing prefix of path and appends the missing rest.
// A dangling link inside path is an error.
func resolve(path string) (string, error) {
	sep := string(filepath.Separator)
	rest := ""
	for {
		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(path); lerr == nil {
			return "", err
		}
		i := strings.LastIndex(path, sep)
		if i <= 0 {
			return filepath.Join(path, rest), nil
		}
		rest = filepath.Join(path[i+1:], rest)
		path = path[:i]
	}
}

// within reports whether path is dest or lies beneath it.
func within(dest string, path string) bool {
	rel, err := filepath.Rel(dest, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
