package core

import (
	"strconv"
	"strings"
)

// RenderTemplate expands a message template against fields.
//
// A token is a property name in braces, e.g. "User {Name} logged in".
// The name may carry a leading '@' or '$' hint and a trailing
// ",alignment" or ":format" suffix. String values are quoted unless the
// format is "l". "{{" and "}}" produce literal braces. Tokens that do not
// name a field, and unterminated braces, are copied through unchanged,
// so rendering never fails.
func RenderTemplate(template string, fields []Field) string {
	if strings.IndexByte(template, '{') < 0 && strings.IndexByte(template, '}') < 0 {
		return template
	}

	var b strings.Builder
	b.Grow(len(template) + 16)

	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			token := template[i : i+end+2]
			if !renderToken(&b, token[1:len(token)-1], fields) {
				b.WriteString(token)
			}
			i += len(token)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// renderToken writes the value for a single token body. It reports false
// when the token is not a valid property reference or names no field.
func renderToken(b *strings.Builder, body string, fields []Field) bool {
	name, format := body, ""
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name, format = name[:i], name[i+1:]
	}
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	if len(name) > 0 && (name[0] == '@' || name[0] == '$') {
		name = name[1:]
	}
	if !validPropertyName(name) {
		return false
	}

	f, ok := lookupField(fields, name)
	if !ok {
		return false
	}
	writeValue(b, f, format == "l")
	return true
}

// lookupField returns the last field with the given key so that call-site
// fields win over logger defaults.
func lookupField(fields []Field, key string) (Field, bool) {
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].Key == key {
			return fields[i], true
		}
	}
	return Field{}, false
}

func validPropertyName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' || c == '.' || c == '-' ||
			(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		return false
	}
	return true
}

// writeValue renders a field value for display inside a message
func writeValue(b *strings.Builder, f Field, literal bool) {
	switch f.Type {
	case StringType:
		if literal {
			b.WriteString(f.Str)
		} else {
			b.WriteString(strconv.Quote(f.Str))
		}
	case ArrayType:
		b.WriteByte('[')
		for i, m := range f.Members() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, m, literal)
		}
		b.WriteByte(']')
	case ObjectType:
		b.WriteByte('{')
		for i, m := range f.Members() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Key)
			b.WriteString(": ")
			writeValue(b, m, literal)
		}
		b.WriteByte('}')
	default:
		b.WriteString(f.StringValue())
	}
}
