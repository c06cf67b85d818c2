package messages

// System messages for locking and filesystem helpers.
const (
	LockOpenFmt    = "open lock %s: %w"
	LockFmt        = "lock %s: %w"
	LockTimeoutFmt = "%w: %s after %s"
	LockTimeout    = "timed out waiting for lock"
	LockWaitingFmt = "Waiting for another umu-setup to finish (%s) ..."

	// FsutilCreateTempFileFmt formats temp file creation errors.
	FsutilCreateTempFileFmt  = "create temp file for %s: %w"
	FsutilSetPermissionsFmt  = "set permissions for %s: %w"
	FsutilWriteTempFileFmt   = "write temp file for %s: %w"
	FsutilSyncTempFileFmt    = "sync temp file for %s: %w"
	FsutilCloseTempFileFmt   = "close temp file for %s: %w"
	FsutilRenameTempFileFmt  = "rename temp file for %s: %w"
	FsutilCopyFmt            = "copy %s -> %s: %w"
	FsutilUnsupportedTypeFmt = "copy %s: unsupported file type %s"
)
