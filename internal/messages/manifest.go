package messages

// Manifest messages.
const (
	// ManifestNotFound is the sentinel text for a missing manifest.
	ManifestNotFound = "manifest not found"
	// ManifestMalformed is the sentinel text for a manifest lacking required keys.
	ManifestMalformed = "manifest malformed"

	ManifestNotFoundFmt       = "%w: File not found: %s\nPlease reinstall the package to recover configuration file"
	ManifestMalformedFmt      = "%w: Failed to load %s or 'umu' or 'versions' not in: %s\nPlease reinstall the package"
	ManifestMissingVersionFmt = "%w: %s is missing a version for %q\nPlease reinstall the package"
	ManifestReadFailedFmt     = "read %s: %w"
	ManifestStatFailedFmt     = "check %s: %w"
	ManifestEncodeFailedFmt   = "encode %s: %w"
	ManifestWriteFailedFmt    = "write %s: %w"
	ManifestCopyFailedFmt     = "copy %s -> %s: %w"
)
