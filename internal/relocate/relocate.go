// Package relocate moves the top-level entries of a staging directory into place in parallel.
//
// Directories are replaced wholesale, never merged: an existing same-name directory at the
// destination is removed before the move so the destination mirrors the source exactly.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// ErrRelocation reports a failed move or recursive delete.
var ErrRelocation = errors.New(messages.RelocationFailed)

// Relocator moves entries from a source directory into a destination directory.
type Relocator struct {
	sys   System
	log   *logging.Logger
	limit int
}

// New returns a Relocator running at most limit moves at once. limit <= 0 means unbounded.
func New(sys System, log *logging.Logger, limit int) *Relocator {
	if sys == nil {
		sys = RealSystem{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Relocator{sys: sys, log: log, limit: limit}
}

// Entries lists the names of the top-level entries in dir, sorted.
func (r *Relocator) Entries(dir string) ([]string, error) {
	entries, err := r.sys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf(messages.RelocateListFmt, ErrRelocation, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Relocate moves every named entry from src to dst concurrently and waits for all of them.
// The first failure is returned wrapped in ErrRelocation; moves not yet started are skipped.
func (r *Relocator) Relocate(ctx context.Context, names []string, src string, dst string) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.move(filepath.Join(src, name), filepath.Join(dst, name))
		})
	}
	return g.Wait()
}

// move replaces dst with src. The removal of an existing dst happens before the move.
func (r *Relocator) move(src string, dst string) error {
	srcInfo, err := r.sys.Lstat(src)
	if err != nil {
		return fmt.Errorf(messages.RelocateMoveFmt, ErrRelocation, src, dst, err)
	}
	if dstInfo, err := r.sys.Lstat(dst); err == nil {
		if dstInfo.IsDir() || srcInfo.IsDir() {
			r.log.Debug().Str("path", dst).Msg("Removing directory")
			if err := r.sys.RemoveAll(dst); err != nil {
				return fmt.Errorf(messages.RelocateRemoveFmt, ErrRelocation, dst, err)
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.RelocateRemoveFmt, ErrRelocation, dst, err)
	}

	r.log.Debug().Str("src", src).Str("dst", dst).Msg("Moving")
	if err := r.sys.Move(src, dst); err != nil {
		return fmt.Errorf(messages.RelocateMoveFmt, ErrRelocation, src, dst, err)
	}
	return nil
}
