package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stepundo/internal/engine/jsondoc"
)

func (s *session) docModule() *lua.LTable {
	return s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"get":         s.docGet,
		"exists":      s.docExists,
		"set":         s.docSet,
		"set_raw":     s.docSetRaw,
		"delete":      s.docDelete,
		"text":        s.docText,
		"undo":        s.docUndo,
		"redo":        s.docRedo,
		"stop":        s.docStop,
		"transaction": s.docTransaction,
		"can_undo":    s.docCanUndo,
		"can_redo":    s.docCanRedo,
		"undo_count":  s.docUndoCount,
	})
}

// editor returns the attached editor or raises ErrNoDocument.
func (s *session) editor() *jsondoc.Editor {
	if s.runner.json == nil {
		s.raise(ErrNoDocument)
	}
	return s.runner.json
}

// doc.get(path) -> value
func (s *session) docGet(L *lua.LState) int {
	path := L.CheckString(1)
	ed := s.editor()
	if s.dtx != nil {
		L.Push(fromJSON(L, s.dtx.Get(path)))
	} else {
		L.Push(fromJSON(L, ed.Get(path)))
	}
	return 1
}

// doc.exists(path) -> bool
func (s *session) docExists(L *lua.LState) int {
	path := L.CheckString(1)
	ed := s.editor()
	if s.dtx != nil {
		L.Push(lua.LBool(s.dtx.Get(path).Exists()))
	} else {
		L.Push(lua.LBool(ed.Get(path).Exists()))
	}
	return 1
}

// doc.set(path, value)
func (s *session) docSet(L *lua.LState) int {
	path := L.CheckString(1)
	v := toGo(L.CheckAny(2))
	ed := s.editor()

	var err error
	if s.dtx != nil {
		err = s.dtx.SetValue(path, v)
	} else {
		err = ed.SetValue(path, v)
	}
	if err != nil {
		s.raise(err)
	}
	return 0
}

// doc.set_raw(path, json)
func (s *session) docSetRaw(L *lua.LState) int {
	path := L.CheckString(1)
	raw := L.CheckString(2)
	ed := s.editor()

	var err error
	if s.dtx != nil {
		err = s.dtx.Set(path, raw)
	} else {
		err = ed.Set(path, raw)
	}
	if err != nil {
		s.raise(err)
	}
	return 0
}

// doc.delete(path)
func (s *session) docDelete(L *lua.LState) int {
	path := L.CheckString(1)
	ed := s.editor()

	var err error
	if s.dtx != nil {
		err = s.dtx.Delete(path)
	} else {
		err = ed.Delete(path)
	}
	if err != nil {
		s.raise(err)
	}
	return 0
}

func (s *session) docText(L *lua.LState) int {
	ed := s.editor()
	if s.dtx != nil {
		L.Push(lua.LString(s.dtx.Get("@this").Raw))
	} else {
		L.Push(lua.LString(ed.String()))
	}
	return 1
}

func (s *session) docUndo(L *lua.LState) int {
	ed := s.editor()
	s.requireNoTx(s.dtx != nil)
	if err := ed.Undo(); err != nil {
		s.raise(err)
	}
	return 0
}

func (s *session) docRedo(L *lua.LState) int {
	ed := s.editor()
	s.requireNoTx(s.dtx != nil)
	if err := ed.Redo(); err != nil {
		s.raise(err)
	}
	return 0
}

func (s *session) docStop(L *lua.LState) int {
	ed := s.editor()
	if s.dtx != nil {
		s.dtx.InsertUndoStop()
	} else {
		ed.InsertUndoStop()
	}
	return 0
}

// doc.transaction([name,] fn)
func (s *session) docTransaction(L *lua.LState) int {
	name, fn := transactionArgs(L)
	ed := s.editor()

	body := func(tx *jsondoc.Tx) error {
		prev := s.dtx
		s.dtx = tx
		defer func() { s.dtx = prev }()
		return s.call(fn)
	}

	var err error
	if s.dtx != nil {
		err = s.dtx.Transaction(name, body)
	} else {
		err = ed.Transaction(name, body)
	}
	if err != nil {
		s.reraise(err)
	}
	return 0
}

func (s *session) docCanUndo(L *lua.LState) int {
	ed := s.editor()
	s.requireNoTx(s.dtx != nil)
	L.Push(lua.LBool(ed.CanUndo()))
	return 1
}

func (s *session) docCanRedo(L *lua.LState) int {
	ed := s.editor()
	s.requireNoTx(s.dtx != nil)
	L.Push(lua.LBool(ed.CanRedo()))
	return 1
}

func (s *session) docUndoCount(L *lua.LState) int {
	ed := s.editor()
	s.requireNoTx(s.dtx != nil)
	L.Push(lua.LNumber(ed.UndoCount()))
	return 1
}
