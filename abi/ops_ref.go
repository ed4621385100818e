package abi

import (
	lua "github.com/yuin/gopher-lua"
)

// refTable allocates integer keys in one registry.
type refTable struct {
	free []int
	next int
}

func (e *Env) refTable(g *lua.Global) *refTable {
	rt, ok := e.refs[g]
	if !ok {
		rt = &refTable{next: 1}
		e.refs[g] = rt
	}
	return rt
}

// Ref stores v in the registry of L and returns a key for it. nil yields
// RefNil.
func (e *Env) Ref(L *lua.LState, v lua.LValue) int {
	if v == lua.LNil {
		return RefNil
	}
	rt := e.refTable(L.G)
	var ref int
	if n := len(rt.free); n > 0 {
		ref = rt.free[n-1]
		rt.free = rt.free[:n-1]
	} else {
		ref = rt.next
		rt.next++
	}
	L.G.Registry.RawSetInt(ref, v)
	return ref
}

// Unref releases ref for reuse.
func (e *Env) Unref(L *lua.LState, ref int) {
	if ref <= 0 {
		return
	}
	L.G.Registry.RawSetInt(ref, lua.LNil)
	rt := e.refTable(L.G)
	rt.free = append(rt.free, ref)
}

// GetRef returns the value stored under ref.
func (e *Env) GetRef(L *lua.LState, ref int) lua.LValue {
	if ref <= 0 {
		return lua.LNil
	}
	return L.G.Registry.RawGetInt(ref)
}

// lua_ref(L, idx) references the value at idx without popping it.
func opRef(c *Call, stack []uint64) {
	t := c.state(stack[0])
	v := c.value(t, stack[1])
	retI32(stack, int32(c.env.Ref(t.L, v))) //nolint:gosec // refs are dense small integers
}

func opUnref(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.env.Unref(t.L, int(i32v(stack[1])))
}
