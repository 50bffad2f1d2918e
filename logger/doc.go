// Package logger is the public API of nlog-logdna. Most users only need
// to import this package and a handler.
//
// A Logger is immutable after construction. The fields, the level and
// the handler are set once via the Builder and never modified, so a
// Logger is safe for concurrent use without locking on the read path.
//
// Messages are templates: {Name} tokens are rendered against the
// entry's fields when the line is formatted, and the fields themselves
// are shipped as meta.
//
//	logger.Info("user {user} signed in", logger.String("user", "alice"))
//
// The package initializes a default Logger (InfoLevel, LogDNA JSON lines
// to stdout) in init(). To ship to Mezmo, build a Logger around an
// httphandler.Handler:
//
//	h, err := httphandler.New(httphandler.Config{APIKey: key, AppName: "api"})
//	if err != nil {
//	    return err
//	}
//	log := logger.NewBuilder().
//	    WithHandler(h).
//	    WithLevel(logger.DebugLevel).
//	    Build()
//	defer log.Close()
//
// Child loggers with extra fields are created via With, which returns
// a new Logger that shares the same handler but carries additional
// default fields:
//
//	reqLog := log.With(logger.String("request_id", id))
//
// Level checks happen before any allocation, so filtered-out
// messages cost only a single integer comparison.
package logger
