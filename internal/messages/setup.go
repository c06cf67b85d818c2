package messages

// Setup and reconciliation messages.
const (
	SetupNewInstall      = "Setting up Unified Launcher for Windows Games on Linux ..."
	SetupCopiedFmt       = "Copied %s -> %s"
	SetupCompleted       = "Completed."
	SetupUpdatingFmt     = "Updating %s to %s"
	SetupRestoringFmt    = "Restoring Runtime Platform to %s ..."
	SetupRuntimeNotFound = "Runtime Platform not found"

	SetupCheckInstallDirFmt  = "check install directory %s: %w"
	SetupCreateInstallDirFmt = "create install directory %s: %w"
	SetupScanInstallDirFmt   = "scan install directory %s: %w"
	SetupRemoveFmt           = "remove %s: %w"
	SetupReinstallFmt        = "reinstall %s %s: %w"
	SetupPersistFmt          = "persist local manifest: %w"

	ActionRetag   = "retag"
	ActionRestore = "restore"
	ActionUpgrade = "upgrade"
)
