// Package buffer provides the thread-safe text document edited through the
// undo engine.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Byte-offset editing that refuses to split a UTF-8 sequence
//   - Grapheme cluster navigation for backspace and delete keys
//   - Line ending and Unicode normalization of inserted text
//   - Revision tracking for change management
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("Hello, World!")
//	buf.Insert(7, "Beautiful ")  // "Hello, Beautiful World!"
//	buf.Delete(0, 7)             // "Beautiful World!"
package buffer
