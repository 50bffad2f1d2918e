package logger

import (
	"github.com/philipp01105/nlog-logdna/core"
)

// Level Re-export type and constants for convenience
type Level = core.Level

const (
	VerboseLevel = core.VerboseLevel
	DebugLevel   = core.DebugLevel
	InfoLevel    = core.InfoLevel
	WarnLevel    = core.WarnLevel
	ErrorLevel   = core.ErrorLevel
	FatalLevel   = core.FatalLevel
)

// ParseLevel converts a string to a Level, falling back to InfoLevel
// for unknown names
func ParseLevel(s string) Level {
	level, _ := core.ParseLevel(s)
	return level
}
