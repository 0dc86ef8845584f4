package script

import (
	"fmt"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value to a Go value suitable for JSON encoding.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo converts a table with keys 1..n to a slice and any other table
// to a map. The empty table becomes an empty object.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.MaxN()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// fromJSON converts a gjson result to a Lua value. Missing values and null
// become nil.
func fromJSON(L *lua.LState, r gjson.Result) lua.LValue {
	switch r.Type {
	case gjson.String:
		return lua.LString(r.Str)
	case gjson.Number:
		return lua.LNumber(r.Num)
	case gjson.True:
		return lua.LTrue
	case gjson.False:
		return lua.LFalse
	case gjson.JSON:
		t := L.NewTable()
		if r.IsArray() {
			for _, item := range r.Array() {
				t.Append(fromJSON(L, item))
			}
			return t
		}
		r.ForEach(func(key, value gjson.Result) bool {
			t.RawSetString(key.String(), fromJSON(L, value))
			return true
		})
		return t
	default:
		return lua.LNil
	}
}
