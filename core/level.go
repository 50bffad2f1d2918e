package core

import "strings"

// Level represents the severity level of a log entry
type Level int8

const (
	// VerboseLevel for tracing output that is rarely enabled
	VerboseLevel Level = iota
	// DebugLevel for detailed debugging information
	DebugLevel
	// InfoLevel for general informational messages (default)
	InfoLevel
	// WarnLevel for warning messages
	WarnLevel
	// ErrorLevel for error messages
	ErrorLevel
	// FatalLevel for fatal messages (causes os.Exit(1))
	FatalLevel
)

var levelNames = [...]string{
	VerboseLevel: "Verbose",
	DebugLevel:   "Debug",
	InfoLevel:    "Information",
	WarnLevel:    "Warning",
	ErrorLevel:   "Error",
	FatalLevel:   "Fatal",
}

// String returns the literal level name as it appears in the ingest payload
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "Unknown"
	}
	return levelNames[l]
}

// ParseLevel converts a level name to a Level. Both the long names
// ("Information", "Warning") and the short ones ("info", "warn") are
// accepted, case-insensitively. The second return value is false when
// the name is not recognised, in which case InfoLevel is returned.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return VerboseLevel, true
	case "debug":
		return DebugLevel, true
	case "information", "info":
		return InfoLevel, true
	case "warning", "warn":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}
