package handler

import (
	"context"
	"log/slog"
	"math"

	"github.com/philipp01105/nlog-logdna/core"
)

// SlogHandler is an adapter that implements slog.Handler using a Handler.
// slog attributes become entry fields and slog groups become nested
// objects, so they end up under meta in the LogDNA line.
type SlogHandler struct {
	handler      Handler
	level        core.Level
	goas         []groupOrAttrs
	recycleEntry bool
}

// groupOrAttrs is either an opened group or a set of attributes
// added with WithAttrs
type groupOrAttrs struct {
	group string
	attrs []core.Field
}

// NewSlogHandler creates a new slog.Handler adapter wrapping the given Handler.
func NewSlogHandler(h Handler, level core.Level) *SlogHandler {
	s := &SlogHandler{
		handler: h,
		level:   level,
	}
	if rc, ok := h.(interface{ CanRecycleEntry() bool }); ok {
		s.recycleEntry = rc.CanRecycleEntry()
	}
	return s
}

// Enabled reports whether the handler handles records at the given level.
func (s *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return SlogLevelToCore(level) >= s.level
}

// Handle processes a slog.Record by converting it to a core.Entry and passing it to the wrapped handler.
func (s *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	entry := core.GetEntry()
	entry.Time = record.Time
	entry.Level = SlogLevelToCore(record.Level)
	entry.Message = record.Message

	var recordFields []core.Field
	if record.NumAttrs() > 0 {
		recordFields = make([]core.Field, 0, record.NumAttrs())
		record.Attrs(func(a slog.Attr) bool {
			recordFields = appendAttr(recordFields, a)
			return true
		})
	}
	entry.Fields = append(entry.Fields, s.nest(0, recordFields)...)

	err := s.handler.Handle(entry)
	if s.recycleEntry {
		core.PutEntry(entry)
	}
	return err
}

// nest builds the field list from goas[i:], placing everything after an
// opened group inside that group. Empty groups are omitted.
func (s *SlogHandler) nest(i int, tail []core.Field) []core.Field {
	var fields []core.Field
	for ; i < len(s.goas); i++ {
		goa := s.goas[i]
		if goa.group == "" {
			fields = append(fields, goa.attrs...)
			continue
		}
		if inner := s.nest(i+1, tail); len(inner) > 0 {
			fields = append(fields, core.Field{Key: goa.group, Type: core.ObjectType, Any: inner})
		}
		return fields
	}
	return append(fields, tail...)
}

// WithAttrs returns a new SlogHandler with additional attributes.
func (s *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	var fields []core.Field
	for _, a := range attrs {
		fields = appendAttr(fields, a)
	}
	return s.with(groupOrAttrs{attrs: fields})
}

// WithGroup returns a new SlogHandler with the given group name.
func (s *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.with(groupOrAttrs{group: name})
}

func (s *SlogHandler) with(goa groupOrAttrs) *SlogHandler {
	goas := make([]groupOrAttrs, len(s.goas), len(s.goas)+1)
	copy(goas, s.goas)
	return &SlogHandler{
		handler:      s.handler,
		level:        s.level,
		goas:         append(goas, goa),
		recycleEntry: s.recycleEntry,
	}
}

// SlogLevelToCore converts a slog.Level to a core.Level.
func SlogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError+4:
		return core.FatalLevel
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	case level >= slog.LevelDebug:
		return core.DebugLevel
	default:
		return core.VerboseLevel
	}
}

// appendAttr converts a slog.Attr and appends the result. Empty attrs
// are skipped and groups with an empty key are inlined.
func appendAttr(fields []core.Field, a slog.Attr) []core.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		var members []core.Field
		for _, ga := range a.Value.Group() {
			members = appendAttr(members, ga)
		}
		if len(members) == 0 {
			return fields
		}
		if a.Key == "" {
			return append(fields, members...)
		}
		return append(fields, core.Field{Key: a.Key, Type: core.ObjectType, Any: members})
	}
	return append(fields, valueToField(a.Key, a.Value))
}

// valueToField converts a resolved, non-group slog.Value to a core.Field
func valueToField(key string, v slog.Value) core.Field {
	switch v.Kind() {
	case slog.KindString:
		return core.Field{Key: key, Type: core.StringType, Str: v.String()}
	case slog.KindInt64:
		return core.Field{Key: key, Type: core.Int64Type, Int64: v.Int64()}
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return core.Field{Key: key, Type: core.Int64Type, Int64: int64(u)}
		}
		return core.Field{Key: key, Type: core.AnyType, Any: v.Uint64()}
	case slog.KindFloat64:
		return core.Field{Key: key, Type: core.Float64Type, Float64: v.Float64()}
	case slog.KindBool:
		val := int64(0)
		if v.Bool() {
			val = 1
		}
		return core.Field{Key: key, Type: core.BoolType, Int64: val}
	case slog.KindTime:
		return core.Field{Key: key, Type: core.TimeType, Any: v.Time()}
	case slog.KindDuration:
		return core.Field{Key: key, Type: core.DurationType, Int64: int64(v.Duration())}
	default:
		if err, ok := v.Any().(error); ok {
			return core.Field{Key: key, Type: core.ErrorType, Str: err.Error()}
		}
		return core.Field{Key: key, Type: core.AnyType, Any: v.Any()}
	}
}
