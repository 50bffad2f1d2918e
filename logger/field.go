package logger

import (
	"time"

	"github.com/philipp01105/nlog-logdna/core"
)

// Field helper functions for convenience

// String creates a string field
func String(key, val string) core.Field {
	return core.Field{Key: key, Type: core.StringType, Str: val}
}

// Int creates an int field
func Int(key string, val int) core.Field {
	return core.Field{Key: key, Type: core.IntType, Int64: int64(val)}
}

// Int64 creates an int64 field
func Int64(key string, val int64) core.Field {
	return core.Field{Key: key, Type: core.Int64Type, Int64: val}
}

// Float64 creates a float64 field
func Float64(key string, val float64) core.Field {
	return core.Field{Key: key, Type: core.Float64Type, Float64: val}
}

// Bool creates a bool field
func Bool(key string, val bool) core.Field {
	int64Val := int64(0)
	if val {
		int64Val = 1
	}
	return core.Field{Key: key, Type: core.BoolType, Int64: int64Val}
}

// Time creates a time field. The value keeps its UTC offset.
func Time(key string, val time.Time) core.Field {
	return core.Field{Key: key, Type: core.TimeType, Any: val}
}

// Duration creates a duration field
func Duration(key string, val time.Duration) core.Field {
	return core.Field{Key: key, Type: core.DurationType, Int64: int64(val)}
}

// Err creates an error field keyed "error". Use ErrorErr to attach an
// error as the entry's exception instead.
func Err(err error) core.Field {
	return NamedErr("error", err)
}

// NamedErr creates an error field with a custom key
func NamedErr(key string, err error) core.Field {
	if err == nil {
		return core.Field{Key: key, Type: core.ErrorType, Str: ""}
	}
	return core.Field{Key: key, Type: core.ErrorType, Str: err.Error()}
}

// Object creates a nested object field; member order is preserved
func Object(key string, members ...core.Field) core.Field {
	return core.Field{Key: key, Type: core.ObjectType, Any: members}
}

// Array creates an array field. Element keys are ignored.
func Array(key string, elems ...core.Field) core.Field {
	return core.Field{Key: key, Type: core.ArrayType, Any: elems}
}

// Strings creates an array field of strings
func Strings(key string, vals []string) core.Field {
	elems := make([]core.Field, len(vals))
	for i, v := range vals {
		elems[i] = core.Field{Type: core.StringType, Str: v}
	}
	return Array(key, elems...)
}

// Any creates a field with any value; it is serialized with encoding/json
func Any(key string, val interface{}) core.Field {
	return core.Field{Key: key, Type: core.AnyType, Any: val}
}
