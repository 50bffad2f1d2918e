// Package selflog is the diagnostic side channel of nlog-logdna.
//
// Entries that cannot be formatted, batches that cannot be delivered and
// similar internal failures are reported here instead of being written
// into the main log stream. The default Reporter writes JSON lines to
// stderr at warn level through zap; tests and applications can inject
// their own.
package selflog

import (
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/philipp01105/nlog-logdna/core"
)

// Reporter receives internal diagnostics
type Reporter interface {
	// Dropped reports an entry that could not be formatted and was discarded.
	Dropped(ts time.Time, template string, err error)
	// Warn reports any other internal failure.
	Warn(msg string, fields ...zap.Field)
}

// ZapReporter is a Reporter backed by a zap.Logger
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter creates a Reporter that logs through l. A nil logger
// yields a reporter that discards everything.
func NewZapReporter(l *zap.Logger) *ZapReporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapReporter{logger: l.Named("selflog")}
}

// Dropped implements Reporter
func (r *ZapReporter) Dropped(ts time.Time, template string, err error) {
	r.logger.Warn("event could not be formatted into JSON and will be dropped",
		zap.String("timestamp", ts.Format(core.RoundTripLayout)),
		zap.String("template", template),
		zap.Error(err),
	)
}

// Warn implements Reporter
func (r *ZapReporter) Warn(msg string, fields ...zap.Field) {
	r.logger.Warn(msg, fields...)
}

// Nop returns a Reporter that discards all diagnostics
func Nop() Reporter {
	return NewZapReporter(zap.NewNop())
}

// NewStderrLogger builds the zap logger used by the default reporter:
// JSON encoded, warn level and above, written to stderr.
func NewStderrLogger() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	c := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)
	return zap.New(c)
}

type holder struct{ r Reporter }

var defaultReporter atomic.Pointer[holder]

func init() {
	defaultReporter.Store(&holder{r: NewZapReporter(NewStderrLogger())})
}

// Default returns the process-wide Reporter used when none is injected
func Default() Reporter {
	return defaultReporter.Load().r
}

// SetDefault replaces the process-wide Reporter. A nil Reporter disables
// diagnostics.
func SetDefault(r Reporter) {
	if r == nil {
		r = Nop()
	}
	defaultReporter.Store(&holder{r: r})
}

// OrDefault returns r, or the process-wide Reporter when r is nil
func OrDefault(r Reporter) Reporter {
	if r == nil {
		return Default()
	}
	return r
}
