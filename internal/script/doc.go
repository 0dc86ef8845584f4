// Package script runs Lua scripts against an engine and, optionally, a JSON
// document editor.
//
// Each run gets a fresh gopher-lua state with only the base, table, string
// and math libraries opened. Two modules are installed as globals:
//
//	buf   text buffer edits and undo history
//	doc   JSON document edits and undo history
//
// Offsets passed to buf functions are zero-based byte offsets.
//
// # Example
//
//	buf.insert(0, "hello")
//	buf.stop()
//	buf.transaction("shout", function()
//	    buf.replace(0, 5, "HELLO")
//	    buf.insert(buf.len(), "!")
//	end)
//	buf.undo()
//	print(buf.text())  -- hello
//
// An error raised inside a transaction function rolls back every edit the
// function made and is re-raised to the caller. buf.undo and buf.redo fail
// while a buf transaction is open; likewise for doc.
//
// # Limits
//
// Runs are bounded by a timeout, enforced through the state's context, and
// by the Lua call stack size.
package script
