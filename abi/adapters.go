package abi

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
)

// Fixed-arity entries for operations the C API defines as macros or as
// variadic functions. Each behaves as its inline form.

func opPop(c *Call, stack []uint64) {
	t := c.state(stack[0])
	n := int(i32v(stack[1]))
	c.need(t, n)
	t.L.Pop(n)
}

func opNewTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, t.L.NewTable())
}

func opNewUserdata(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.newUserdata(t, u32(stack[1]), 0))
}

func opPushCClosure(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.pushClosure(t, u32(stack[1]), u32(stack[2]), int(i32v(stack[3])), 0)
}

func opPushCFunction(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.pushClosure(t, u32(stack[1]), u32(stack[2]), 0, 0)
}

func opSetGlobal(c *Call, stack []uint64) {
	t := c.state(stack[0])
	name := c.name(u32(stack[1]))
	c.need(t, 1)
	L := t.L
	L.SetField(L.Get(GlobalsIndex), name, L.Get(-1))
	L.Pop(1)
}

func opGetGlobal(c *Call, stack []uint64) {
	t := c.state(stack[0])
	name := c.name(u32(stack[1]))
	c.push(t, t.L.GetField(t.L.Get(GlobalsIndex), name))
}

func opGetRef(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, c.env.GetRef(t.L, int(i32v(stack[1]))))
}

func opToNumber(c *Call, stack []uint64) {
	t := c.state(stack[0])
	f, _ := ToNumber(c.at(t, stack[1]))
	retF64(stack, f)
}

func opToInteger(c *Call, stack []uint64) {
	t := c.state(stack[0])
	f, _ := ToNumber(c.at(t, stack[1]))
	retI32(stack, toInt32(f))
}

func opToString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.tolstring(t, stack[1], 0))
}

func typeIs(tp int) Func {
	return func(c *Call, stack []uint64) {
		t := c.state(stack[0])
		retBool(stack, TypeOf(c.at(t, stack[1])) == tp)
	}
}

func opIsNone(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, c.at(t, stack[1]) == nil)
}

func opIsNoneOrNil(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, isNoneOrNil(c.at(t, stack[1])))
}

func opGetMetatableL(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, t.L.GetTypeMetatable(c.name(u32(stack[1]))))
}

func opCheckString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.export(c.env.CheckString(t.L, c.argn(stack[1]))))
}

func opOptString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.optlstring(t, c.argn(stack[1]), u32(stack[2]), 0))
}

func opTypeNameL(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.export(typeNameOf(c.at(t, stack[1]))))
}

// lua_pushfstringL(L, str, len) pushes an already formatted string and
// returns a pointer to its copy.
func opPushFStringL(c *Call, stack []uint64) {
	t := c.state(stack[0])
	b := c.bytes(u32(stack[1]), u32(stack[2]))
	c.push(t, lua.LString(b))
	retU32(stack, c.export(string(b)))
}

// luaL_errorL(L, msg, len) raises a structured error with an already
// formatted message.
func opErrorL(c *Call, stack []uint64) {
	c.state(stack[0])
	msg, err := NewMessage(c.bytes(u32(stack[1]), u32(stack[2])))
	if err != nil {
		c.Fail(err)
	}
	c.Fail(errors.New(msg))
}
