// Package jsondoc applies the undo history to JSON documents.
//
// A Document holds raw JSON text. Edits address values with gjson path
// syntax ("user.name", "items.0", "items.-1" to append) and are recorded as
// Change steps holding the document before and after the edit. An Editor
// ties a Document to a history.Manager and serializes access to both.
package jsondoc

import (
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Errors returned by document operations.
var (
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrInvalidPath  = errors.New("invalid path")
	ErrPathNotFound = errors.New("path not found")
)

// Document is a JSON value. It is not safe for concurrent use; Editor
// provides locking.
type Document struct {
	raw string
}

// New returns a document holding an empty object.
func New() *Document {
	return &Document{raw: "{}"}
}

// Parse creates a document from JSON text.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return &Document{raw: string(data)}, nil
}

// Get returns the value at path.
func (d *Document) Get(path string) gjson.Result {
	return gjson.Get(d.raw, path)
}

// Exists reports whether path resolves to a value.
func (d *Document) Exists(path string) bool {
	return d.Get(path).Exists()
}

// String returns the JSON text.
func (d *Document) String() string {
	return d.raw
}

// Bytes returns a copy of the JSON text.
func (d *Document) Bytes() []byte {
	return []byte(d.raw)
}

// Pretty returns the JSON text indented for display.
func (d *Document) Pretty() string {
	return string(pretty.Pretty([]byte(d.raw)))
}
