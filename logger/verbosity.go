package logger

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: configured level
	VerbosityInfo  = 1 // -v
	VerbosityDebug = 2 // -vv: + SQL-level debug lines
)

// LevelForVerbosity lets -v flags raise the configured level.
// A zero verbosity leaves configured untouched.
func LevelForVerbosity(configured string, verbosity int) string {
	switch {
	case verbosity >= VerbosityDebug:
		return "debug"
	case verbosity == VerbosityInfo && (configured == "warn" || configured == "error"):
		return "info"
	default:
		return configured
	}
}
