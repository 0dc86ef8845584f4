package script

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepundo/internal/engine"
	"github.com/dshills/stepundo/internal/engine/history"
)

func (s *session) bufModule() *lua.LTable {
	return s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"text":           s.bufText,
		"len":            s.bufLen,
		"insert":         s.bufInsert,
		"delete":         s.bufDelete,
		"backspace":      s.bufBackspace,
		"delete_forward": s.bufDeleteForward,
		"replace":        s.bufReplace,
		"undo":           s.bufUndo,
		"redo":           s.bufRedo,
		"stop":           s.bufStop,
		"transaction":    s.bufTransaction,
		"can_undo":       s.bufCanUndo,
		"can_redo":       s.bufCanRedo,
		"undo_count":     s.bufUndoCount,
		"redo_count":     s.bufRedoCount,
		"undo_names":     s.bufUndoNames,
		"redo_names":     s.bufRedoNames,
	})
}

func (s *session) eng() *engine.Engine {
	return s.runner.engine
}

func (s *session) bufText(L *lua.LState) int {
	if s.btx != nil {
		L.Push(lua.LString(s.btx.Text()))
	} else {
		L.Push(lua.LString(s.eng().Text()))
	}
	return 1
}

func (s *session) bufLen(L *lua.LState) int {
	if s.btx != nil {
		L.Push(lua.LNumber(s.btx.Length()))
	} else {
		L.Push(lua.LNumber(s.eng().Len()))
	}
	return 1
}

// buf.insert(offset, text) -> end offset
func (s *session) bufInsert(L *lua.LState) int {
	off := engine.ByteOffset(L.CheckInt64(1))
	text := L.CheckString(2)

	var end engine.ByteOffset
	var err error
	if s.btx != nil {
		end, err = s.btx.Insert(off, text)
	} else {
		end, err = s.eng().Insert(off, text)
	}
	if err != nil {
		s.raise(err)
	}
	L.Push(lua.LNumber(end))
	return 1
}

// buf.delete(start, end)
func (s *session) bufDelete(L *lua.LState) int {
	start := engine.ByteOffset(L.CheckInt64(1))
	end := engine.ByteOffset(L.CheckInt64(2))

	var err error
	if s.btx != nil {
		err = s.btx.Delete(start, end)
	} else {
		err = s.eng().Delete(start, end)
	}
	if err != nil {
		s.raise(err)
	}
	return 0
}

// buf.backspace(offset [, n]) -> new offset
func (s *session) bufBackspace(L *lua.LState) int {
	off := engine.ByteOffset(L.CheckInt64(1))
	n := L.OptInt(2, 1)

	var start engine.ByteOffset
	var err error
	if s.btx != nil {
		start, err = s.btx.DeleteBackward(off, n)
	} else {
		start, err = s.eng().DeleteBackward(off, n)
	}
	if err != nil {
		s.raise(err)
	}
	L.Push(lua.LNumber(start))
	return 1
}

// buf.delete_forward(offset [, n])
func (s *session) bufDeleteForward(L *lua.LState) int {
	off := engine.ByteOffset(L.CheckInt64(1))
	n := L.OptInt(2, 1)

	var err error
	if s.btx != nil {
		err = s.btx.DeleteForward(off, n)
	} else {
		err = s.eng().DeleteForward(off, n)
	}
	if err != nil {
		s.raise(err)
	}
	return 0
}

// buf.replace(start, end, text) -> end of the new text
func (s *session) bufReplace(L *lua.LState) int {
	start := engine.ByteOffset(L.CheckInt64(1))
	end := engine.ByteOffset(L.CheckInt64(2))
	text := L.CheckString(3)

	var newEnd engine.ByteOffset
	var err error
	if s.btx != nil {
		newEnd, err = s.btx.Replace(start, end, text)
	} else {
		newEnd, err = s.eng().Replace(start, end, text)
	}
	if err != nil {
		s.raise(err)
	}
	L.Push(lua.LNumber(newEnd))
	return 1
}

func (s *session) bufUndo(L *lua.LState) int {
	if s.btx != nil {
		s.raise(history.ErrTransactionActive)
	}
	if err := s.eng().Undo(); err != nil {
		s.raise(err)
	}
	return 0
}

func (s *session) bufRedo(L *lua.LState) int {
	if s.btx != nil {
		s.raise(history.ErrTransactionActive)
	}
	if err := s.eng().Redo(); err != nil {
		s.raise(err)
	}
	return 0
}

func (s *session) bufStop(L *lua.LState) int {
	if s.btx != nil {
		s.btx.InsertUndoStop()
	} else {
		s.eng().InsertUndoStop()
	}
	return 0
}

// buf.transaction([name,] fn)
func (s *session) bufTransaction(L *lua.LState) int {
	name, fn := transactionArgs(L)

	body := func(tx *engine.Tx) error {
		prev := s.btx
		s.btx = tx
		defer func() { s.btx = prev }()
		return s.call(fn)
	}

	var err error
	if s.btx != nil {
		err = s.btx.Transaction(name, body)
	} else {
		err = s.eng().Transaction(name, body)
	}
	if err != nil {
		s.reraise(err)
	}
	return 0
}

func (s *session) bufCanUndo(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(lua.LBool(s.eng().CanUndo()))
	return 1
}

func (s *session) bufCanRedo(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(lua.LBool(s.eng().CanRedo()))
	return 1
}

func (s *session) bufUndoCount(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(lua.LNumber(s.eng().UndoCount()))
	return 1
}

func (s *session) bufRedoCount(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(lua.LNumber(s.eng().RedoCount()))
	return 1
}

func (s *session) bufUndoNames(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(stringsToTable(L, s.eng().UndoNames()))
	return 1
}

func (s *session) bufRedoNames(L *lua.LState) int {
	s.requireNoTx(s.btx != nil)
	L.Push(stringsToTable(L, s.eng().RedoNames()))
	return 1
}

// requireNoTx raises when a query would need the lock an open transaction holds.
func (s *session) requireNoTx(open bool) {
	if open {
		s.raise(history.ErrTransactionActive)
	}
}

// transactionArgs reads the optional name and the function of a
// transaction call.
func transactionArgs(L *lua.LState) (string, *lua.LFunction) {
	if L.Get(1).Type() == lua.LTFunction {
		return "", L.CheckFunction(1)
	}
	return L.OptString(1, ""), L.CheckFunction(2)
}

// reraise propagates a failed transaction. Lua errors from the body pass
// through unchanged; Go errors are raised afresh.
func (s *session) reraise(err error) {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		s.L.RaiseError("%s", message(err))
	}
	s.raise(err)
}

func stringsToTable(L *lua.LState, values []string) *lua.LTable {
	t := L.CreateTable(len(values), 0)
	for _, v := range values {
		t.Append(lua.LString(v))
	}
	return t
}
