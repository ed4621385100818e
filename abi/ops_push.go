package abi

import (
	lua "github.com/yuin/gopher-lua"
)

func opPushNil(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LNil)
}

func opPushNumber(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LNumber(f64v(stack[1])))
}

func opPushInteger(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LNumber(i32v(stack[1])))
}

func opPushUnsigned(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LNumber(u32(stack[1])))
}

// lua_pushlstring copies len bytes verbatim; embedded zeros are kept.
func opPushLString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	b := c.bytes(u32(stack[1]), u32(stack[2]))
	c.push(t, lua.LString(b))
}

func opPushString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	s, ok := c.cstring(u32(stack[1]))
	if !ok {
		c.push(t, lua.LNil)
		return
	}
	c.push(t, lua.LString(s))
}

// lua_pushcclosurek(L, fn, debugname, nup, cont). Continuations are not
// supported by the VM; cont must be 0.
func opPushCClosureK(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.pushClosure(t, u32(stack[1]), u32(stack[2]), int(i32v(stack[3])), u32(stack[4]))
}

func (c *Call) pushClosure(t *thread, fn, namePtr uint32, nup int, cont uint32) {
	if c.guest == nil {
		c.contract("closures need a plugin")
	}
	if cont != 0 {
		c.contract("continuation functions are not supported")
	}
	c.need(t, nup)
	name, _ := c.cstring(namePtr)

	L := t.L
	upvalues := make([]lua.LValue, nup)
	top := L.GetTop()
	for i := range upvalues {
		upvalues[i] = L.Get(top - nup + 1 + i)
	}
	L.Pop(nup)
	c.push(t, c.env.GuestFunction(L, c.guest, fn, name, upvalues...))
}

func opPushBoolean(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LBool(i32v(stack[1]) != 0))
}

func opPushThread(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, t.L)
	retBool(stack, t.L == t.L.G.MainThread)
}
