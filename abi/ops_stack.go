package abi

import (
	lua "github.com/yuin/gopher-lua"
)

func isPseudo(idx int) bool {
	return idx <= RegistryIndex
}

// at resolves an acceptable index: a stack slot, a slot above the top but
// within the granted capacity (nil result), or a pseudo index. Anything else
// is a contract violation.
func (c *Call) at(t *thread, raw uint64) lua.LValue {
	idx := int(i32v(raw))
	L := t.L
	top := L.GetTop()
	switch {
	case idx > 0:
		if idx <= top {
			return L.Get(idx)
		}
		if idx > t.limit {
			c.contract("index %d above stack capacity %d", idx, t.limit)
		}
		return nil
	case idx == 0:
		c.contract("index 0 is not a stack index")
	case idx > RegistryIndex:
		if -idx > top {
			c.contract("index %d below the bottom of a stack of %d", idx, top)
		}
		return L.Get(idx)
	case idx == RegistryIndex || idx == EnvironIndex || idx == GlobalsIndex:
		return L.Get(idx)
	default:
		if c.env.frameOf(t) == nil {
			c.contract("upvalue index %d outside a native function", idx)
		}
		return L.Get(idx)
	}
	return nil
}

// value resolves an index that must hold a value.
func (c *Call) value(t *thread, raw uint64) lua.LValue {
	v := c.at(t, raw)
	if v == nil {
		c.contract("no value at index %d", i32v(raw))
	}
	return v
}

// slot resolves an index that must name an existing stack slot and returns
// its absolute position. Pseudo indices are rejected.
func (c *Call) slot(t *thread, raw uint64) int {
	idx := int(i32v(raw))
	top := t.L.GetTop()
	if idx < 0 && !isPseudo(idx) {
		idx = top + idx + 1
	}
	if idx < 1 || idx > top {
		c.contract("index %d is not a stack slot (top %d)", i32v(raw), top)
	}
	return idx
}

func (c *Call) table(t *thread, raw uint64) *lua.LTable {
	v := c.value(t, raw)
	tb, ok := v.(*lua.LTable)
	if !ok {
		c.contract("table expected at index %d, got %s", i32v(raw), typeNameOf(v))
	}
	return tb
}

func (c *Call) function(t *thread, raw uint64) *lua.LFunction {
	v := c.value(t, raw)
	fn, ok := v.(*lua.LFunction)
	if !ok {
		c.contract("function expected at index %d, got %s", i32v(raw), typeNameOf(v))
	}
	return fn
}

// need requires n values on the stack.
func (c *Call) need(t *thread, n int) {
	if top := t.L.GetTop(); n < 0 || n > top {
		c.contract("needs %d values, stack has %d", n, top)
	}
}

// push appends values, failing when they would exceed the capacity granted to
// the stack.
func (c *Call) push(t *thread, values ...lua.LValue) {
	top := t.L.GetTop()
	if top+len(values) > t.limit {
		c.contract("stack overflow: %d slots in use, capacity %d", top, t.limit)
	}
	for _, v := range values {
		t.L.Push(v)
	}
}

func opAbsIndex(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.at(t, stack[1])
	idx := i32v(stack[1])
	if idx < 0 && !isPseudo(int(idx)) {
		idx = int32(t.L.GetTop()) + idx + 1 //nolint:gosec // stack sizes are bounded by MaxStack
	}
	retI32(stack, idx)
}

func opGetTop(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retI32(stack, int32(t.L.GetTop())) //nolint:gosec // bounded by MaxStack
}

func opSetTop(c *Call, stack []uint64) {
	t := c.state(stack[0])
	idx := int(i32v(stack[1]))
	top := t.L.GetTop()
	switch {
	case idx > t.limit:
		c.contract("settop %d above stack capacity %d", idx, t.limit)
	case idx < 0 && -idx > top+1:
		c.contract("settop %d below the bottom of a stack of %d", idx, top)
	}
	t.L.SetTop(idx)
}

func opPushValue(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, c.value(t, stack[1]))
}

func opRemove(c *Call, stack []uint64) {
	t := c.state(stack[0])
	t.L.Remove(c.slot(t, stack[1]))
}

func opInsert(c *Call, stack []uint64) {
	t := c.state(stack[0])
	pos := c.slot(t, stack[1])
	L := t.L
	if pos == L.GetTop() {
		return
	}
	v := L.Get(-1)
	L.Pop(1)
	L.Insert(v, pos)
}

func opReplace(c *Call, stack []uint64) {
	t := c.state(stack[0])
	L := t.L
	c.need(t, 1)
	idx := int(i32v(stack[1]))
	if isPseudo(idx) {
		c.at(t, stack[1])
		v := L.Get(-1)
		L.Pop(1)
		replacePseudo(c, L, idx, v)
		return
	}
	pos := c.slot(t, stack[1])
	L.Replace(pos, L.Get(-1))
	L.Pop(1)
}

func replacePseudo(c *Call, L *lua.LState, idx int, v lua.LValue) {
	if idx == RegistryIndex || idx == EnvironIndex || idx == GlobalsIndex {
		if _, ok := v.(*lua.LTable); !ok {
			c.contract("replacing index %d with a %s value", idx, typeNameOf(v))
		}
	}
	L.Replace(idx, v)
}

func opCheckStack(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, c.env.growStack(t, int(i32v(stack[1]))))
}

func opRawCheckStack(c *Call, stack []uint64) {
	t := c.state(stack[0])
	n := int(i32v(stack[1]))
	if n < 0 {
		c.contract("negative size %d", n)
	}
	if need := t.L.GetTop() + n; need > t.limit {
		t.limit = need
	}
}

func opXMove(c *Call, stack []uint64) {
	from, to := c.state(stack[0]), c.state(stack[1])
	n := int(i32v(stack[2]))
	if from == to || n == 0 {
		return
	}
	if from.L.G != to.L.G {
		c.contract("cannot move values between different states")
	}
	c.need(from, n)
	if to.L.GetTop()+n > to.limit {
		c.contract("stack overflow moving %d values onto a stack with capacity %d", n, to.limit)
	}
	from.L.XMoveTo(to.L, n)
}

func opXPush(c *Call, stack []uint64) {
	from, to := c.state(stack[0]), c.state(stack[1])
	if from.L.G != to.L.G {
		c.contract("cannot move values between different states")
	}
	c.push(to, c.value(from, stack[2]))
}
