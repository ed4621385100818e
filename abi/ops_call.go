package abi

import (
	"bytes"
	"errors"

	lua "github.com/yuin/gopher-lua"
)

// luaL_loadbuffer(L, buf, len, chunkname) compiles a chunk and pushes the
// resulting function, or pushes the message and returns a syntax status.
// Precompiled chunks are rejected; the VM cannot load them.
func opLoadBuffer(c *Call, stack []uint64) {
	t := c.state(stack[0])
	src := c.bytes(u32(stack[1]), u32(stack[2]))
	name, ok := c.cstring(u32(stack[3]))
	if !ok {
		name = "=(load)"
	}
	if len(src) > 0 && src[0] == 0x1b {
		c.push(t, lua.LString("bytecode chunks are not supported"))
		retI32(stack, StatusErrSyntax)
		return
	}
	fn, err := t.L.Load(bytes.NewReader(src), name)
	if err != nil {
		c.push(t, lua.LString(err.Error()))
		retI32(stack, StatusErrSyntax)
		return
	}
	c.push(t, fn)
	retI32(stack, StatusOK)
}

func opCall(c *Call, stack []uint64) {
	t := c.state(stack[0])
	nargs, nresults := int(i32v(stack[1])), int(i32v(stack[2]))
	c.checkCall(t, nargs, nresults)
	t.L.Call(nargs, nresults)
	c.settle(t)
}

// lua_pcall(L, nargs, nresults, errfunc) where errfunc is 0 or the stack
// index of a message handler.
func opPCall(c *Call, stack []uint64) {
	t := c.state(stack[0])
	nargs, nresults := int(i32v(stack[1])), int(i32v(stack[2]))
	var handler *lua.LFunction
	if i32v(stack[3]) != 0 {
		handler = c.function(t, stack[3])
	}
	c.checkCall(t, nargs, nresults)
	retI32(stack, c.protected(t, nargs, nresults, handler))
}

// lua_cpcall(L, fn, ud) calls the plugin function fn in protected mode with
// ud as its only argument, a number holding the plugin pointer.
func opCPCall(c *Call, stack []uint64) {
	t := c.state(stack[0])
	if c.guest == nil {
		c.contract("cpcall needs a plugin")
	}
	fn := c.env.GuestFunction(t.L, c.guest, u32(stack[1]), "cpcall")
	c.push(t, fn, lua.LNumber(u32(stack[2])))
	retI32(stack, c.protected(t, 1, 0, nil))
}

// lua_error raises the value on top of the stack unchanged.
func opError(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.need(t, 1)
	t.L.Error(t.L.Get(-1), 0)
}

func (c *Call) checkCall(t *thread, nargs, nresults int) {
	if nargs < 0 {
		c.contract("negative argument count %d", nargs)
	}
	if nresults < MultRet {
		c.contract("invalid result count %d", nresults)
	}
	c.need(t, nargs+1)
}

func (c *Call) protected(t *thread, nargs, nresults int, handler *lua.LFunction) int32 {
	L := t.L
	if err := L.PCall(nargs, nresults, handler); err != nil {
		var apiErr *lua.ApiError
		if !errors.As(err, &apiErr) {
			L.Push(lua.LString(err.Error()))
			return StatusErrRun
		}
		if apiErr.Object != nil {
			L.Push(apiErr.Object)
		} else {
			L.Push(lua.LString(apiErr.Error()))
		}
		c.settle(t)
		return status(apiErr, handler != nil)
	}
	c.settle(t)
	return StatusOK
}

// settle lets results of a call stay on the stack even when they exceed the
// capacity granted before the call.
func (c *Call) settle(t *thread) {
	if top := t.L.GetTop(); top > t.limit {
		t.limit = top
	}
}

// status maps a PCall failure to a status code. With a message handler the
// VM tags the error ApiErrorError once the handler returned, and passes the
// handler's own error through when the handler raised.
func status(err *lua.ApiError, handled bool) int32 {
	switch {
	case handled && err.Type == lua.ApiErrorError:
		return StatusErrRun
	case handled:
		return StatusErrErr
	case err.Type == lua.ApiErrorSyntax:
		return StatusErrSyntax
	default:
		return StatusErrRun
	}
}
