// Package manifest loads, validates, and persists umu_version.json.
//
// Documents are validated once on load into a typed Manifest with all four components set.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/umu-launcher/umu-setup/internal/messages"
)

// FileName is the manifest file name inside the reference and install directories.
const FileName = "umu_version.json"

// ErrNotFound reports that the manifest file is absent.
var ErrNotFound = errors.New(messages.ManifestNotFound)

// ErrMalformed reports that the manifest lacks the umu/versions structure or a required component.
var ErrMalformed = errors.New(messages.ManifestMalformed)

// Component names a versioned piece of the toolset.
type Component string

// Known components, in manifest order.
const (
	Reaper          Component = "reaper"
	RuntimePlatform Component = "runtime_platform"
	Launcher        Component = "launcher"
	Runner          Component = "runner"
)

// Components returns every known component in manifest order.
func Components() []Component {
	return []Component{Reaper, RuntimePlatform, Launcher, Runner}
}

// Versions maps each component to its opaque version string.
type Versions struct {
	Reaper          string `json:"reaper"`
	RuntimePlatform string `json:"runtime_platform"`
	Launcher        string `json:"launcher"`
	Runner          string `json:"runner"`
}

// Get returns the version recorded for c.
func (v Versions) Get(c Component) string {
	switch c {
	case Reaper:
		return v.Reaper
	case RuntimePlatform:
		return v.RuntimePlatform
	case Launcher:
		return v.Launcher
	case Runner:
		return v.Runner
	}
	return ""
}

// Set records version for c. Unknown components are ignored.
func (v *Versions) Set(c Component, version string) {
	switch c {
	case Reaper:
		v.Reaper = version
	case RuntimePlatform:
		v.RuntimePlatform = version
	case Launcher:
		v.Launcher = version
	case Runner:
		v.Runner = version
	}
}

// Section is the "umu" object of the manifest.
type Section struct {
	Versions Versions `json:"versions"`
}

// Manifest is a validated umu_version.json document.
type Manifest struct {
	UMU Section `json:"umu"`
}

// Diff returns the components whose versions differ between a and b, in manifest order.
func Diff(a Manifest, b Manifest) []Component {
	var changed []Component
	for _, c := range Components() {
		if a.UMU.Versions.Get(c) != b.UMU.Versions.Get(c) {
			changed = append(changed, c)
		}
	}
	return changed
}

// System abstracts the filesystem operations needed to read and write manifests.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
}

// Path returns the manifest path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and validates the manifest stored in dir.
// It fails with ErrNotFound when the file is absent and ErrMalformed when it is not a valid manifest.
func Load(sys System, dir string) (Manifest, error) {
	path := Path(dir)
	info, err := sys.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, fmt.Errorf(messages.ManifestNotFoundFmt, ErrNotFound, FileName)
		}
		return Manifest{}, fmt.Errorf(messages.ManifestStatFailedFmt, path, err)
	}
	if !info.Mode().IsRegular() {
		return Manifest{}, fmt.Errorf(messages.ManifestNotFoundFmt, ErrNotFound, FileName)
	}
	data, err := sys.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf(messages.ManifestReadFailedFmt, path, err)
	}
	return Parse(data)
}

type rawManifest struct {
	UMU *struct {
		Versions map[string]string `json:"versions"`
	} `json:"umu"`
}

// Parse validates manifest content and returns the typed Manifest.
func Parse(data []byte) (Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Manifest{}, fmt.Errorf(messages.ManifestMalformedFmt, ErrMalformed, FileName, FileName)
	}
	if raw.UMU == nil || len(raw.UMU.Versions) == 0 {
		return Manifest{}, fmt.Errorf(messages.ManifestMalformedFmt, ErrMalformed, FileName, FileName)
	}

	var m Manifest
	for _, c := range Components() {
		version := raw.UMU.Versions[string(c)]
		if version == "" {
			return Manifest{}, fmt.Errorf(messages.ManifestMissingVersionFmt, ErrMalformed, FileName, c)
		}
		m.UMU.Versions.Set(c, version)
	}
	return m, nil
}

// Encode renders m as 4-space indented JSON with a trailing newline.
func Encode(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf(messages.ManifestEncodeFailedFmt, FileName, err)
	}
	return buf.Bytes(), nil
}

// Write replaces the manifest in dir with m. The file is rewritten in full, never patched.
func Write(sys System, dir string, m Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	path := Path(dir)
	if err := sys.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf(messages.ManifestWriteFailedFmt, path, err)
	}
	return nil
}

// CopyFile copies the manifest from srcDir to dstDir byte for byte.
func CopyFile(sys System, srcDir string, dstDir string) error {
	src := Path(srcDir)
	dst := Path(dstDir)
	data, err := sys.ReadFile(src)
	if err != nil {
		return fmt.Errorf(messages.ManifestCopyFailedFmt, src, dst, err)
	}
	if err := sys.WriteFileAtomic(dst, data, 0o644); err != nil {
		return fmt.Errorf(messages.ManifestCopyFailedFmt, src, dst, err)
	}
	return nil
}
