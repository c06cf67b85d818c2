package messages

// Runtime fetch, extraction, and relocation messages.
const (
	// FetchFailed is the sentinel text for a failed runtime download.
	FetchFailed = "fetch failed"
	// FetchStalled is the cancel cause for a download that stopped receiving data.
	FetchStalled = "download stalled"

	FetchStatusFmt           = "%w: %s returned the status: %d"
	FetchTransportFmt        = "%w: download %s: %w"
	FetchTimeoutFmt          = "%w: download %s: no data received for %s"
	FetchTooLargeFmt         = "%w: download %s: response too large (limit %d bytes)"
	FetchCreateRequestFmt    = "create request for %s: %w"
	FetchCreateFileFmt       = "create %s: %w"
	FetchCloseFileFmt        = "close %s: %w"
	FetchPopupStartFmt       = "start %s: %w"
	FetchPopupPipeFmt        = "connect %s to %s: %w"
	FetchRetryingFmt         = "download %s failed (attempt %d): %v; retrying"
	FetchPopupExitWarningFmt = "zenity exited with the status code: %d"
	FetchPopupRetrying       = "Retrying the download directly ..."
	FetchPopupMessage        = "Downloading UMU-Runtime ..."

	// ArchiveUnsafePath is the sentinel text for an archive member rejected by the filter.
	ArchiveUnsafePath = "unsafe archive member"

	ArchiveOpenFmt          = "open archive %s: %w"
	ArchiveXZReaderFmt      = "read xz stream %s: %w"
	ArchiveReadFmt          = "read archive %s: %w"
	ArchiveUnsafeFmt        = "%w: %s: %s"
	ArchiveCreateDirFmt     = "create directory %s: %w"
	ArchiveCreateFileFmt    = "create file %s: %w"
	ArchiveWriteFileFmt     = "write file %s: %w"
	ArchiveSymlinkFmt       = "create symlink %s: %w"
	ArchiveHardlinkFmt      = "create hard link %s: %w"
	ArchiveNoMembersFmt     = "archive %s has no members under %s"
	ArchiveReasonAbsolute   = "absolute path"
	ArchiveReasonTraversal  = "path escapes the destination"
	ArchiveReasonLinkTarget = "link target escapes the destination"
	ArchiveReasonSpecial    = "special file type"
	ArchiveReasonResolved   = "path resolves outside the destination through a link"

	// RelocationFailed is the sentinel text for a failed move or recursive delete.
	RelocationFailed = "relocation failed"

	RelocateRemoveFmt = "%w: remove %s: %w"
	RelocateMoveFmt   = "%w: move %s -> %s: %w"
	RelocateListFmt   = "%w: list %s: %w"

	// RenameFailed is the sentinel text for a failed entry-point rename.
	RenameFailed = "entry point rename failed"

	RuntimeRenameFmt           = "%w: %s -> %s: %w"
	RuntimeStagingFmt          = "create staging directory: %w"
	RuntimeCreateInstallDirFmt = "create install directory %s: %w"
	RuntimeDownloadingFmt      = "Downloading %s %s, please wait ..."
)
