package abi

import (
	lua "github.com/yuin/gopher-lua"
)

func opABIVersion(_ *Call, stack []uint64) {
	retU32(stack, Version)
}

func opABIFields(_ *Call, stack []uint64) {
	retU32(stack, uint32(table.Len())) //nolint:gosec // small constant
}

func opNewState(c *Call, stack []uint64) {
	L := lua.NewState(c.env.cfg.stateOptions)
	c.env.installErrorModule(L)
	t := c.env.bind(L)
	t.owned = true
	retU32(stack, uint32(t.id))
}

func opClose(c *Call, stack []uint64) {
	t := c.state(stack[0])
	if !t.owned {
		c.contract("state %d was not created by luaL_newstate", t.id)
	}
	for _, f := range c.env.frames {
		if f.t.L.G == t.L.G {
			c.contract("state %d is still running", t.id)
		}
	}
	L := t.L
	c.env.forget(L.G)
	L.Close()
}

func opNewThread(c *Call, stack []uint64) {
	t := c.state(stack[0])
	co, _ := t.L.NewThread()
	c.push(t, co)
	retU32(stack, uint32(c.env.bind(co).id))
}

func opMainThread(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, uint32(c.env.bind(t.L.G.MainThread).id))
}

// lua_resetthread gives the handle a fresh thread sharing the same globals.
// Scripts still holding the old coroutine object keep it as it was.
func opResetThread(c *Call, stack []uint64) {
	t := c.state(stack[0])
	L := t.L
	if L == L.G.MainThread {
		c.contract("cannot reset the main thread")
	}
	if L == L.G.CurrentThread || c.env.frameOf(t) != nil {
		c.contract("cannot reset a running thread")
	}
	fresh, _ := L.G.MainThread.NewThread()
	c.env.rebind(t, fresh)
	t.failed = false
}

func opIsThreadReset(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, !t.L.Dead && !started(t.L) && t.L.GetTop() == 0)
}

// started reports whether a thread has an active call frame.
func started(L *lua.LState) bool {
	_, ok := L.GetStack(0)
	return ok
}
