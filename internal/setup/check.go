package setup

import (
	"github.com/umu-launcher/umu-setup/internal/manifest"
)

// Report describes what Setup would do, without doing it.
type Report struct {
	// FreshInstall is set when the install directory is missing or empty.
	FreshInstall bool
	Reference    manifest.Manifest
	// Local and Plan are only populated for an existing install.
	Local manifest.Manifest
	Plan  Plan
}

// Check loads both manifests and plans the update. It never mutates the filesystem.
func (e *Engine) Check(rootDir string, installDir string) (Report, error) {
	ref, err := manifest.Load(e.sys, rootDir)
	if err != nil {
		return Report{}, err
	}
	report := Report{Reference: ref}

	fresh, err := e.needsFreshInstall(installDir)
	if err != nil {
		return Report{}, err
	}
	if fresh {
		report.FreshInstall = true
		return report, nil
	}

	local, err := manifest.Load(e.sys, installDir)
	if err != nil {
		return Report{}, err
	}
	plan, err := e.Plan(installDir, ref, local)
	if err != nil {
		return Report{}, err
	}
	report.Local = local
	report.Plan = plan
	return report, nil
}
