// Package setup reconciles a local umu install with the reference manifest shipped by the package.
//
// An Engine is built per command. It owns no background workers: every re-fetch it schedules
// runs in an errgroup scoped to one Apply call, and the local manifest is rewritten only after
// all of them succeeded.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/manifest"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// Installer fetches the runtime platform named by a manifest into an install directory.
type Installer interface {
	Install(ctx context.Context, installDir string, m manifest.Manifest) error
}

// Options configures an Engine.
type Options struct {
	Installer Installer
	System    System
	Logger    *logging.Logger
}

// Engine plans and applies install and update runs.
type Engine struct {
	installer Installer
	sys       System
	log       *logging.Logger
}

// New returns an Engine. Installer is required.
func New(opts Options) *Engine {
	e := &Engine{installer: opts.Installer, sys: opts.System, log: opts.Logger}
	if e.sys == nil {
		e.sys = RealSystem{}
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	return e
}

// Setup installs into installDir when it is missing or empty, otherwise updates it against rootDir's manifest.
func (e *Engine) Setup(ctx context.Context, rootDir string, installDir string) error {
	e.log.Debug().Str("root", rootDir).Msg("Root")
	e.log.Debug().Str("local", installDir).Msg("Local")

	ref, err := manifest.Load(e.sys, rootDir)
	if err != nil {
		return err
	}

	fresh, err := e.needsFreshInstall(installDir)
	if err != nil {
		return err
	}
	if fresh {
		return e.freshInstall(ctx, rootDir, installDir, ref)
	}

	local, err := manifest.Load(e.sys, installDir)
	if err != nil {
		return err
	}
	_, err = e.Update(ctx, installDir, ref, local)
	return err
}

// Update plans and applies the changes that bring local to ref, returning the resulting local manifest.
func (e *Engine) Update(ctx context.Context, installDir string, ref manifest.Manifest, local manifest.Manifest) (manifest.Manifest, error) {
	e.log.Debug().Msg("Existing install detected")
	plan, err := e.Plan(installDir, ref, local)
	if err != nil {
		return local, err
	}
	return e.Apply(ctx, installDir, ref, local, plan)
}

// Apply executes plan. Re-fetches run concurrently with the remaining actions and are joined
// before the local manifest is written. Nothing is written when the plan is empty or any step fails.
func (e *Engine) Apply(ctx context.Context, installDir string, ref manifest.Manifest, local manifest.Manifest, plan Plan) (manifest.Manifest, error) {
	g, gctx := errgroup.WithContext(ctx)
	var stepErr error

	for _, action := range plan.Actions {
		action := action
		switch action.Kind {
		case KindRetag:
			e.log.Consolef(messages.SetupUpdatingFmt, action.Component, action.To)
		case KindRestore:
			e.log.Warn().Msg(messages.SetupRuntimeNotFound)
		case KindUpgrade:
			e.log.Consolef(messages.SetupUpdatingFmt, action.Component, action.To)
		}

		if action.Refetch() {
			if stepErr = e.removeAll(action.Remove); stepErr != nil {
				break
			}
			version := action.To
			g.Go(func() error {
				if err := e.installer.Install(gctx, installDir, ref); err != nil {
					return fmt.Errorf(messages.SetupReinstallFmt, action.Component, version, err)
				}
				return nil
			})
			if action.Kind == KindRestore {
				e.log.Consolef(messages.SetupRestoringFmt, action.To)
			}
		}
		local.UMU.Versions.Set(action.Component, action.To)
	}

	if err := errors.Join(stepErr, g.Wait()); err != nil {
		return local, err
	}
	if plan.Empty() {
		return local, nil
	}
	if err := manifest.Write(e.sys, installDir, local); err != nil {
		return local, fmt.Errorf(messages.SetupPersistFmt, err)
	}
	return local, nil
}

func (e *Engine) removeAll(paths []string) error {
	for _, path := range paths {
		e.log.Debug().Str("path", path).Msg("Removing")
		if err := e.sys.RemoveAll(path); err != nil {
			return fmt.Errorf(messages.SetupRemoveFmt, path, err)
		}
	}
	return nil
}

func (e *Engine) needsFreshInstall(installDir string) (bool, error) {
	if _, err := e.sys.Stat(installDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf(messages.SetupCheckInstallDirFmt, installDir, err)
	}
	entries, err := e.sys.ReadDir(installDir)
	if err != nil {
		return false, fmt.Errorf(messages.SetupCheckInstallDirFmt, installDir, err)
	}
	return len(entries) == 0, nil
}

func (e *Engine) freshInstall(ctx context.Context, rootDir string, installDir string, ref manifest.Manifest) error {
	e.log.Debug().Msg("New install detected")
	e.log.Consolef(messages.SetupNewInstall)
	if err := e.sys.MkdirAll(installDir, 0o755); err != nil {
		return fmt.Errorf(messages.SetupCreateInstallDirFmt, installDir, err)
	}

	e.log.Consolef(messages.SetupCopiedFmt, manifest.FileName, installDir)
	if err := manifest.CopyFile(e.sys, rootDir, installDir); err != nil {
		return err
	}

	if err := e.installer.Install(ctx, installDir, ref); err != nil {
		return err
	}
	e.log.Consolef(messages.SetupCompleted)
	return nil
}
