package messages

// CLI messages for user-facing commands and flags.
const (
	// RootUse is the CLI command name.
	RootUse = "umu-setup"
	// RootShort is the short description for the root command.
	RootShort       = "Install or update the umu runtime for the current user"
	RootVersionFlag = "Print version and exit"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	// SetupUse is the setup command name.
	SetupUse   = "setup"
	SetupShort = "Install the runtime on first use, or reconcile an existing install"

	// CheckUse is the check command name.
	CheckUse   = "check"
	CheckShort = "Report what an update would change without touching the install directory"

	FlagRoot   = "Directory holding the reference umu_version.json (default /usr/share/umu)"
	FlagLocal  = "Install directory for the current user (default ~/.local/share/umu)"
	FlagZenity = "Show a zenity progress popup while downloading the runtime"
	FlagQuiet  = "Suppress console output; warnings and errors are still logged"
	FlagDiff   = "Print a unified diff of the local and reference manifests"

	CheckFreshInstallFmt   = "No install found at %s; setup would perform a fresh install of runtime %s\n"
	CheckUpToDateFmt       = "Install at %s is up to date\n"
	CheckHeaderFmt         = "Install at %s needs %d change(s):\n"
	CheckActionLineFmt     = "  - %s: %s (%s -> %s)\n"
	CheckChangedKeysFmt    = "Changed versions: %s\n"
	CheckManifestDiffLabel = "umu_version.json"

	ProgressLabel = "Downloading"
)
