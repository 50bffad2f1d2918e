// Package core defines the shared types used across nlog-logdna.
//
// It provides the Level type for severity filtering, the Entry type that
// represents a single log event, and the Field type for structured
// key-value properties.
//
// An Entry's Message is a message template: "{Name}" tokens are rendered
// against the entry's Fields by RenderTemplate when the entry is
// formatted, while the Fields themselves travel alongside as structured
// properties. Fields nest through ObjectType and ArrayType, so a property
// value can be any JSON-representable scalar, sequence or mapping.
//
// Entry objects are pooled via sync.Pool. Callers get an Entry with
// GetEntry and must return it with PutEntry once the handler has
// consumed it. The pool pre-allocates the Fields slice with capacity 8,
// which covers most log calls without triggering a slice growth.
package core
