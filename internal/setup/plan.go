package setup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/umu-launcher/umu-setup/internal/manifest"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// MarkerDir is the directory whose presence marks a complete runtime platform install.
const MarkerDir = "pressure-vessel"

// Kind names what reconciliation does for one component.
type Kind string

// Action kinds.
const (
	// KindRetag records the reference version without touching files.
	KindRetag Kind = messages.ActionRetag
	// KindRestore re-fetches a runtime platform that is missing or incomplete.
	KindRestore Kind = messages.ActionRestore
	// KindUpgrade replaces a complete runtime platform with the reference version.
	KindUpgrade Kind = messages.ActionUpgrade
)

// Action is one planned change for a component.
type Action struct {
	Component manifest.Component
	Kind      Kind
	From      string
	To        string
	// Remove lists the paths deleted before the re-fetch.
	Remove []string
}

// Refetch reports whether the action downloads the runtime archive.
func (a Action) Refetch() bool {
	return a.Kind == KindRestore || a.Kind == KindUpgrade
}

// Plan is the ordered list of actions that brings a local manifest to the reference.
type Plan struct {
	Actions []Action
}

// Empty reports whether the local install already matches the reference.
func (p Plan) Empty() bool {
	return len(p.Actions) == 0
}

// Refetches counts the actions that download the runtime archive.
func (p Plan) Refetches() int {
	n := 0
	for _, a := range p.Actions {
		if a.Refetch() {
			n++
		}
	}
	return n
}

// Plan decides the action for every component without mutating anything.
func (e *Engine) Plan(installDir string, ref manifest.Manifest, local manifest.Manifest) (Plan, error) {
	var plan Plan
	for _, c := range manifest.Components() {
		want := ref.UMU.Versions.Get(c)
		have := local.UMU.Versions.Get(c)
		if c != manifest.RuntimePlatform {
			if want != have {
				plan.Actions = append(plan.Actions, Action{Component: c, Kind: KindRetag, From: have, To: want})
			}
			continue
		}

		action, ok, err := e.planRuntime(installDir, have, want)
		if err != nil {
			return Plan{}, err
		}
		if ok {
			plan.Actions = append(plan.Actions, action)
		}
	}
	return plan, nil
}

func (e *Engine) planRuntime(installDir string, have string, want string) (Action, bool, error) {
	runtimeDir, err := e.findRuntimeDir(installDir, have)
	if err != nil {
		return Action{}, false, err
	}
	marker := filepath.Join(installDir, MarkerDir)
	markerOK, err := e.isDir(marker)
	if err != nil {
		return Action{}, false, err
	}

	action := Action{Component: manifest.RuntimePlatform, From: have, To: want}
	switch {
	case runtimeDir == "" || !markerOK:
		action.Kind = KindRestore
		if runtimeDir != "" {
			action.Remove = append(action.Remove, runtimeDir)
		}
		if markerOK {
			action.Remove = append(action.Remove, marker)
		}
		return action, true, nil
	case want != have:
		action.Kind = KindUpgrade
		action.Remove = []string{runtimeDir, marker}
		return action, true, nil
	default:
		e.log.Debug().Str("path", runtimeDir).Msg("Current runtime")
		return Action{}, false, nil
	}
}

// findRuntimeDir returns the first directory, in lexical order, whose name ends with version.
// Plain files with a matching name are skipped and leave the runtime reported as missing.
func (e *Engine) findRuntimeDir(installDir string, version string) (string, error) {
	entries, err := e.sys.ReadDir(installDir)
	if err != nil {
		return "", fmt.Errorf(messages.SetupScanInstallDirFmt, installDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), version) {
			return filepath.Join(installDir, entry.Name()), nil
		}
	}
	return "", nil
}

func (e *Engine) isDir(path string) (bool, error) {
	info, err := e.sys.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(messages.SetupScanInstallDirFmt, path, err)
	}
	return info.IsDir(), nil
}
