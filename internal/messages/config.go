package messages

// Config messages.
const (
	ConfigReadFileFmt         = "read config %s: %w"
	ConfigInvalidFileFmt      = "invalid config %s: %w"
	ConfigExpandPathFmt       = "expand %s %q: %w"
	ConfigResolveConfigDirFmt = "resolve user config dir: %w"
	ConfigInvalidBoolFmt      = "invalid %s %q: expected a boolean"
	ConfigInvalidIntFmt       = "invalid %s %q: expected a positive integer"
	ConfigInvalidLogLevelFmt  = "invalid %s %q: expected one of 1, info, warn, debug"
	ConfigPathRequiredFmt     = "%s must not be empty"
)
