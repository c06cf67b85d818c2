package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/umu-launcher/umu-setup/internal/config"
	"github.com/umu-launcher/umu-setup/internal/fetch"
	"github.com/umu-launcher/umu-setup/internal/install"
	"github.com/umu-launcher/umu-setup/internal/lock"
	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
	"github.com/umu-launcher/umu-setup/internal/progress"
	"github.com/umu-launcher/umu-setup/internal/relocate"
	"github.com/umu-launcher/umu-setup/internal/setup"
	"github.com/umu-launcher/umu-setup/internal/terminal"
)

var configSystem config.System = config.RealSystem{}
var isTerminalFunc = terminal.IsTerminal

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	root   string
	local  string
	zenity bool
	quiet  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, flags)
		},
	}
	cmd.Flags().BoolP("version", "v", false, messages.RootVersionFlag)

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&flags.root, "root", "", messages.FlagRoot)
	persistent.StringVar(&flags.local, "local", "", messages.FlagLocal)
	persistent.BoolVar(&flags.zenity, "zenity", false, messages.FlagZenity)
	persistent.BoolVarP(&flags.quiet, "quiet", "q", false, messages.FlagQuiet)

	cmd.AddCommand(newSetupCmd(flags), newCheckCmd(flags))
	return cmd
}

func newSetupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   messages.SetupUse,
		Short: messages.SetupShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, flags)
		},
	}
}

// resolveConfig loads the config and applies explicitly set flags on top.
func resolveConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(configSystem)
	if err != nil {
		return config.Config{}, err
	}
	changed := cmd.Flags().Changed
	if changed("root") {
		cfg.Root = flags.root
	}
	if changed("local") {
		cfg.Local = flags.local
	}
	if changed("zenity") {
		cfg.Zenity = flags.zenity
	}
	if err := cfg.Finalize(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, flags *globalFlags, stderr io.Writer) *logging.Logger {
	log := logging.New(stderr, cfg.LogLevel)
	if flags.quiet {
		return log.Quiet()
	}
	return log
}

// newEngine wires the installer and its collaborators for one command run.
func newEngine(cfg config.Config, log *logging.Logger, flags *globalFlags, stderr io.Writer) *setup.Engine {
	fetchOpts := []fetch.Option{fetch.WithLogger(log), fetch.WithMaxBytes(cfg.MaxDownloadBytes)}
	if !flags.quiet && isTerminalFunc(stderr) {
		fetchOpts = append(fetchOpts, fetch.WithProgress(progress.NewBar(stderr, messages.ProgressLabel)))
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	opts := install.Options{
		BaseURL:   cfg.BaseURL,
		Codename:  cfg.Codename,
		Fetcher:   fetch.New(fetchOpts...),
		Relocator: relocate.New(relocate.RealSystem{}, log, workers),
		Logger:    log,
	}
	if cfg.Zenity {
		opts.Popup = fetch.ZenityPopup{}
	}
	return setup.New(setup.Options{Installer: install.New(opts), Logger: log})
}

func runSetup(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	log := newLogger(cfg, flags, stderr)
	if cfg.File != "" {
		log.Debug().Str("path", cfg.File).Msg("Loaded config file")
	}
	engine := newEngine(cfg, log, flags, stderr)

	// The lock file lives beside the install directory, so its parent must exist first.
	parent := filepath.Dir(cfg.Local)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf(messages.SetupCreateInstallDirFmt, parent, err)
	}
	return lock.With(lock.PathFor(cfg.Local), log, func() error {
		return engine.Setup(cmd.Context(), cfg.Root, cfg.Local)
	})
}
