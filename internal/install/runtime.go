// Package install downloads the Steam Linux Runtime archive and installs it into the install directory.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/umu-launcher/umu-setup/internal/archive"
	"github.com/umu-launcher/umu-setup/internal/fetch"
	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/manifest"
	"github.com/umu-launcher/umu-setup/internal/messages"
	"github.com/umu-launcher/umu-setup/internal/relocate"
)

// Fixed names of the runtime image and the layout it unpacks to.
const (
	DefaultBaseURL  = "https://repo.steampowered.com"
	DefaultCodename = "steamrt3"
	ArchiveName     = "SteamLinuxRuntime_sniper.tar.xz"
	ArchiveRoot     = "SteamLinuxRuntime_sniper"
	EntryPoint      = "_v2-entry-point"
	EntryPointName  = "umu"
)

// ErrRename reports that the entry point could not be moved to its canonical name.
var ErrRename = errors.New(messages.RenameFailed)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, dest string) error
}

// Extractor unpacks the members of an archive under a prefix.
type Extractor interface {
	Extract(ctx context.Context, archivePath string, dest string, prefix string) error
	Filtered() bool
}

// Relocator moves the top-level entries of a directory into another one.
type Relocator interface {
	Entries(dir string) ([]string, error)
	Relocate(ctx context.Context, names []string, src string, dst string) error
}

// Options controls installer behavior. Zero values select the defaults.
type Options struct {
	BaseURL  string
	Codename string
	// Popup, when set, is tried before the direct download.
	Popup     fetch.Popup
	Fetcher   Fetcher
	Extractor Extractor
	Relocator Relocator
	Logger    *logging.Logger
	System    System
	// TempDir is the parent of staging directories; empty uses the OS default.
	TempDir string
}

// Installer fetches the runtime platform archive and installs it into an install directory.
type Installer struct {
	baseURL   string
	codename  string
	popup     fetch.Popup
	fetcher   Fetcher
	extractor Extractor
	relocator Relocator
	log       *logging.Logger
	sys       System
	tempDir   string
}

// New returns an Installer configured by opts.
func New(opts Options) *Installer {
	inst := &Installer{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		codename:  opts.Codename,
		popup:     opts.Popup,
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		relocator: opts.Relocator,
		log:       opts.Logger,
		sys:       opts.System,
		tempDir:   opts.TempDir,
	}
	if inst.baseURL == "" {
		inst.baseURL = DefaultBaseURL
	}
	if inst.codename == "" {
		inst.codename = DefaultCodename
	}
	if inst.log == nil {
		inst.log = logging.Nop()
	}
	if inst.sys == nil {
		inst.sys = RealSystem{}
	}
	if inst.fetcher == nil {
		inst.fetcher = fetch.New(fetch.WithLogger(inst.log))
	}
	if inst.extractor == nil {
		inst.extractor = archive.New(inst.log)
	}
	if inst.relocator == nil {
		inst.relocator = relocate.New(nil, inst.log, 0)
	}
	return inst
}

// URL returns the download URL of the runtime image for version.
func (inst *Installer) URL(version string) string {
	return fmt.Sprintf("%s/%s/images/%s/%s", inst.baseURL, inst.codename, version, ArchiveName)
}

// Install downloads the runtime_platform version named by m and installs it into installDir.
// The staging directory is removed on every exit path.
func (inst *Installer) Install(ctx context.Context, installDir string, m manifest.Manifest) error {
	version := m.UMU.Versions.RuntimePlatform
	url := inst.URL(version)
	inst.log.Debug().Str("version", version).Msg("Version")
	inst.log.Debug().Str("url", url).Msg("URL")

	return inst.withStaging(func(staging string) error {
		archivePath := filepath.Join(staging, ArchiveName)
		if err := inst.download(ctx, url, archivePath, version); err != nil {
			return err
		}

		if inst.extractor.Filtered() {
			inst.log.Debug().Msg("Using filter for archive")
		} else {
			inst.log.Warn().Msg("Using no filter for archive")
			inst.log.Warn().Msg("Archive will be extracted insecurely")
		}
		inst.log.Debug().Str("dest", staging).Msg("Extracting archive files")
		if err := inst.extractor.Extract(ctx, archivePath, staging, ArchiveRoot+"/"); err != nil {
			return err
		}

		if err := inst.sys.MkdirAll(installDir, 0o755); err != nil {
			return fmt.Errorf(messages.RuntimeCreateInstallDirFmt, installDir, err)
		}

		source := filepath.Join(staging, ArchiveRoot)
		inst.log.Debug().Str("source", source).Str("destination", installDir).Msg("Relocating runtime")
		names, err := inst.relocator.Entries(source)
		if err != nil {
			return err
		}
		if err := inst.relocator.Relocate(ctx, names, source, installDir); err != nil {
			return err
		}

		inst.log.Debug().Str("path", source).Msg("Removing")
		if err := inst.sys.RemoveAll(source); err != nil {
			inst.log.Debug().Err(err).Str("path", source).Msg("Cleanup failed")
		}
		inst.log.Debug().Str("path", archivePath).Msg("Removing")
		if err := inst.sys.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			inst.log.Debug().Err(err).Str("path", archivePath).Msg("Cleanup failed")
		}

		return inst.renameEntryPoint(installDir)
	})
}

// withStaging runs fn with a fresh staging directory and removes it afterwards, whatever fn returns.
func (inst *Installer) withStaging(fn func(staging string) error) error {
	staging, err := inst.sys.MkdirTemp(inst.tempDir, "umu-*")
	if err != nil {
		return fmt.Errorf(messages.RuntimeStagingFmt, err)
	}
	defer func() {
		if err := inst.sys.RemoveAll(staging); err != nil {
			inst.log.Debug().Err(err).Str("path", staging).Msg("Cleanup failed")
		}
	}()
	return fn(staging)
}

// download tries the popup first when configured and falls back to the direct fetch on any failure.
func (inst *Installer) download(ctx context.Context, url string, dest string, version string) error {
	if inst.popup != nil {
		code, err := inst.popup.Run(ctx, url, dest, messages.FetchPopupMessage)
		if err == nil && code == 0 {
			return nil
		}
		if rmErr := inst.sys.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			inst.log.Debug().Err(rmErr).Str("path", dest).Msg("Cleanup failed")
		}
		if err != nil {
			inst.log.Warn().Err(err).Msg("zenity could not be started")
		} else {
			inst.log.Warn().Msgf(messages.FetchPopupExitWarningFmt, code)
		}
		inst.log.Consolef(messages.FetchPopupRetrying)
	}

	inst.log.Consolef(messages.RuntimeDownloadingFmt, inst.codename, version)
	return inst.fetcher.Fetch(ctx, url, dest)
}

func (inst *Installer) renameEntryPoint(installDir string) error {
	from := filepath.Join(installDir, EntryPoint)
	to := filepath.Join(installDir, EntryPointName)
	inst.log.Debug().Str("from", EntryPoint).Str("to", EntryPointName).Msg("Renaming")
	if err := inst.sys.Rename(from, to); err != nil {
		return fmt.Errorf(messages.RuntimeRenameFmt, ErrRename, from, to, err)
	}
	return nil
}
