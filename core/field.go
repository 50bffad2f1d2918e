package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldType represents the type of a field value
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Float64Type
	BoolType
	TimeType
	DurationType
	ErrorType
	// ObjectType holds an ordered mapping; Any is a []Field whose keys name the members.
	ObjectType
	// ArrayType holds a sequence; Any is a []Field whose keys are ignored.
	ArrayType
	AnyType
)

// Field represents a key-value pair for structured logging.
// TimeType fields keep the time.Time itself in Any, so the full range of
// years and the original zone offset survive formatting.
type Field struct {
	Key     string
	Type    FieldType
	Int64   int64
	Float64 float64
	Str     string
	Any     interface{}
}

// Members returns the nested fields of an ObjectType or ArrayType field
func (f Field) Members() []Field {
	if f.Type != ObjectType && f.Type != ArrayType {
		return nil
	}
	members, _ := f.Any.([]Field)
	return members
}

// TimeValue returns the time stored in a TimeType field
func (f Field) TimeValue() time.Time {
	t, _ := f.Any.(time.Time)
	return t
}

// StringValue returns the string representation of a field's value
func (f Field) StringValue() string {
	switch f.Type {
	case StringType:
		return f.Str
	case IntType, Int64Type:
		return strconv.FormatInt(f.Int64, 10)
	case Float64Type:
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case BoolType:
		return strconv.FormatBool(f.Int64 == 1)
	case TimeType:
		return f.TimeValue().Format(RoundTripLayout)
	case DurationType:
		return time.Duration(f.Int64).String()
	case ErrorType:
		return f.Str
	case ObjectType, ArrayType:
		var b strings.Builder
		writeValue(&b, f, false)
		return b.String()
	case AnyType:
		return fmt.Sprintf("%v", f.Any)
	default:
		return ""
	}
}

// RoundTripLayout is the ISO-8601 layout used for every timestamp the
// module emits: seven fractional digits and a Z or ±hh:mm offset.
const RoundTripLayout = "2006-01-02T15:04:05.0000000Z07:00"
