// Package schema provides the metadata layer of the engine: it maps Go entity
// types to their physical table and column names, resolves typed field
// references, and tracks the table aliases used by an in-progress query.
package schema

// Document is a generic, schema-less representation of a single row or
// document as returned by a backend, keyed by result column label.
type Document map[string]any
