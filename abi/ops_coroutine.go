package abi

import (
	lua "github.com/yuin/gopher-lua"
)

// lua_yield(L, nresults) marks the running native function as yielding. The
// plugin must return the result of lua_yield from that function.
func opYield(c *Call, stack []uint64) {
	t := c.state(stack[0])
	n := int(i32v(stack[1]))
	if t.L.Parent == nil || t.L.G.CurrentThread != t.L {
		c.contract("attempt to yield from outside a coroutine")
	}
	if f := c.env.current(); f == nil || f.t != t {
		c.contract("lua_yield must be called by the running native function")
	}
	c.need(t, n)
	t.yield = n
	retI32(stack, -1)
}

// lua_resume(L, from, narg) starts or continues coroutine L. from is the
// resuming thread, 0 for the main thread. Results, or the error value, are
// left on L's stack.
func opResume(c *Call, stack []uint64) {
	co := c.state(stack[0])
	from := c.env.bind(co.L.G.MainThread)
	if u32(stack[1]) != 0 {
		from = c.state(stack[1])
	}
	narg := int(i32v(stack[2]))
	L := co.L

	if L.Dead {
		c.push(co, lua.LString("cannot resume dead coroutine"))
		retI32(stack, StatusErrRun)
		return
	}
	if L == L.G.CurrentThread {
		c.push(co, lua.LString("cannot resume non-suspended coroutine"))
		retI32(stack, StatusErrRun)
		return
	}

	var fn *lua.LFunction
	if !started(L) {
		c.need(co, narg+1)
		v := L.Get(L.GetTop() - narg)
		f, ok := v.(*lua.LFunction)
		if !ok {
			c.contract("cannot resume a coroutine without a function (got %s)", typeNameOf(v))
		}
		fn = f
	} else {
		c.need(co, narg)
	}
	args := make([]lua.LValue, narg)
	top := L.GetTop()
	for i := range args {
		args[i] = L.Get(top - narg + 1 + i)
	}
	if fn != nil {
		L.SetTop(top - narg - 1)
	} else {
		L.SetTop(top - narg)
	}

	st, err, values := from.L.Resume(L, fn, args...)
	co.failed = st == lua.ResumeError
	if co.failed {
		var obj lua.LValue = lua.LString("coroutine failed")
		if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != nil {
			obj = apiErr.Object
		} else if err != nil {
			obj = lua.LString(err.Error())
		}
		L.Push(obj)
		retI32(stack, StatusErrRun)
		return
	}
	for _, v := range values {
		L.Push(v)
	}
	c.settle(co)
	if st == lua.ResumeYield {
		retI32(stack, StatusYield)
		return
	}
	retI32(stack, StatusOK)
}

func opStatus(c *Call, stack []uint64) {
	t := c.state(stack[0])
	L := t.L
	switch {
	case t.failed:
		retI32(stack, StatusErrRun)
	case !L.Dead && started(L) && L != L.G.CurrentThread && L != L.G.MainThread:
		retI32(stack, StatusYield)
	default:
		retI32(stack, StatusOK)
	}
}

func opIsYieldable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, t.L.Parent != nil && t.L.G.CurrentThread == t.L)
}

func opCoStatus(c *Call, stack []uint64) {
	t := c.state(stack[0])
	co := c.state(stack[1])
	switch t.L.Status(co.L) {
	case "running":
		retI32(stack, CoRunning)
	case "normal":
		retI32(stack, CoNormal)
	case "dead":
		if co.failed {
			retI32(stack, CoError)
		} else {
			retI32(stack, CoFinished)
		}
	default:
		retI32(stack, CoSuspended)
	}
}
