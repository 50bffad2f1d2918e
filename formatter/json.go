package formatter

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlog-logdna/core"
)

// maxDepth bounds nesting of ObjectType and ArrayType values
const maxDepth = 64

// errTooDeep is returned for property values nested deeper than maxDepth
var errTooDeep = errors.New("property value nested too deeply")

// appendJSONString writes a JSON-escaped string (without surrounding quotes) to the buffer.
// Invalid UTF-8 bytes are replaced with \ufffd so the output is always valid UTF-8.
func appendJSONString(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				buf.WriteString(s[start:i])
				buf.WriteString(`\ufffd`)
				i++
				start = i
				continue
			}
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		// Flush unescaped prefix
		if start < i {
			buf.WriteString(s[start:i])
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexChars[c>>4])
			buf.WriteByte(hexChars[c&0x0f])
		}
		i++
		start = i
	}
	// Flush remaining
	if start < len(s) {
		buf.WriteString(s[start:])
	}
}

var hexChars = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

// appendQuoted writes s as a quoted JSON string
func appendQuoted(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	appendJSONString(buf, s)
	buf.WriteByte('"')
}

// appendJSONFieldValue writes a JSON-encoded field value to the buffer.
// Objects and arrays are written recursively.
func appendJSONFieldValue(buf *bytes.Buffer, field core.Field, depth int) error {
	if depth > maxDepth {
		return errTooDeep
	}
	switch field.Type {
	case core.StringType, core.ErrorType:
		appendQuoted(buf, field.Str)
	case core.IntType, core.Int64Type:
		buf.Write(strconv.AppendInt(buf.AvailableBuffer(), field.Int64, 10))
	case core.Float64Type:
		appendJSONFloat(buf, field.Float64)
	case core.BoolType:
		buf.Write(strconv.AppendBool(buf.AvailableBuffer(), field.Int64 == 1))
	case core.TimeType:
		buf.WriteByte('"')
		buf.Write(field.TimeValue().AppendFormat(buf.AvailableBuffer(), core.RoundTripLayout))
		buf.WriteByte('"')
	case core.DurationType:
		appendQuoted(buf, time.Duration(field.Int64).String())
	case core.ObjectType:
		return appendJSONObject(buf, field.Members(), depth+1)
	case core.ArrayType:
		buf.WriteByte('[')
		for i, m := range field.Members() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSONFieldValue(buf, m, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case core.AnyType:
		return appendJSONAny(buf, field.Any)
	default:
		appendQuoted(buf, field.StringValue())
	}
	return nil
}

// appendJSONObject writes fields as a JSON object. Keys are unique: a
// repeated key keeps the position of its first occurrence and the value
// of its last.
func appendJSONObject(buf *bytes.Buffer, fields []core.Field, depth int) error {
	buf.WriteByte('{')
	if err := appendJSONMembers(buf, uniqueFields(fields), depth); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

// appendJSONMembers writes "key":value pairs separated by commas
func appendJSONMembers(buf *bytes.Buffer, fields []core.Field, depth int) error {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		appendQuoted(buf, f.Key)
		buf.WriteByte(':')
		if err := appendJSONFieldValue(buf, f, depth); err != nil {
			return errors.Wrapf(err, "property %q", f.Key)
		}
	}
	return nil
}

// appendJSONFloat writes a float; NaN and infinities have no JSON number
// form and are written as strings.
func appendJSONFloat(buf *bytes.Buffer, v float64) {
	switch {
	case math.IsNaN(v):
		buf.WriteString(`"NaN"`)
	case math.IsInf(v, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(v, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		buf.Write(strconv.AppendFloat(buf.AvailableBuffer(), v, 'f', -1, 64))
	}
}

// appendJSONAny marshals an arbitrary value
func appendJSONAny(buf *bytes.Buffer, v interface{}) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	tmp := getBuffer()
	defer putBuffer(tmp)

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "cannot serialize %T", v)
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// uniqueFields collapses repeated keys. The input is returned as-is when
// every key is already unique.
func uniqueFields(fields []core.Field) []core.Field {
	if !hasDuplicateKeys(fields) {
		return fields
	}
	out := make([]core.Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if i, ok := index[f.Key]; ok {
			out[i] = f
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}

func hasDuplicateKeys(fields []core.Field) bool {
	if len(fields) < 2 {
		return false
	}
	if len(fields) <= 16 {
		for i := 1; i < len(fields); i++ {
			for j := 0; j < i; j++ {
				if fields[i].Key == fields[j].Key {
					return true
				}
			}
		}
		return false
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f.Key]; ok {
			return true
		}
		seen[f.Key] = struct{}{}
	}
	return false
}
