package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/umu-launcher/umu-setup/internal/manifest"
	"github.com/umu-launcher/umu-setup/internal/messages"
	"github.com/umu-launcher/umu-setup/internal/setup"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   messages.CheckUse,
		Short: messages.CheckShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			log := newLogger(cfg, flags, cmd.ErrOrStderr())
			engine := setup.New(setup.Options{Logger: log})

			report, err := engine.Check(cfg.Root, cfg.Local)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), cfg.Local, report, showDiff)
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, messages.FlagDiff)
	return cmd
}

func printReport(out io.Writer, installDir string, report setup.Report, showDiff bool) error {
	if report.FreshInstall {
		_, err := fmt.Fprintf(out, messages.CheckFreshInstallFmt, installDir, report.Reference.UMU.Versions.RuntimePlatform)
		return err
	}
	if report.Plan.Empty() {
		_, err := fmt.Fprintf(out, messages.CheckUpToDateFmt, installDir)
		return err
	}

	if _, err := fmt.Fprintf(out, messages.CheckHeaderFmt, installDir, len(report.Plan.Actions)); err != nil {
		return err
	}
	for _, action := range report.Plan.Actions {
		if _, err := fmt.Fprintf(out, messages.CheckActionLineFmt, action.Component, action.Kind, action.From, action.To); err != nil {
			return err
		}
	}
	if !showDiff {
		return nil
	}

	after := planned(report)
	if changed := manifest.Diff(report.Local, after); len(changed) > 0 {
		names := make([]string, 0, len(changed))
		for _, c := range changed {
			names = append(names, string(c))
		}
		if _, err := fmt.Fprintf(out, messages.CheckChangedKeysFmt, strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	diff, err := manifestDiff(report.Local, after)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, diff)
	return err
}

// planned returns the local manifest as Setup would write it.
func planned(report setup.Report) manifest.Manifest {
	after := report.Local
	for _, action := range report.Plan.Actions {
		after.UMU.Versions.Set(action.Component, action.To)
	}
	return after
}

func manifestDiff(before manifest.Manifest, after manifest.Manifest) (string, error) {
	old, err := manifest.Encode(before)
	if err != nil {
		return "", err
	}
	updated, err := manifest.Encode(after)
	if err != nil {
		return "", err
	}
	label := messages.CheckManifestDiffLabel
	return udiff.Unified("a/"+label, "b/"+label, string(old), string(updated)), nil
}
