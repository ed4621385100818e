package abi

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

func opIsNumber(c *Call, stack []uint64) {
	t := c.state(stack[0])
	_, ok := ToNumber(c.at(t, stack[1]))
	retBool(stack, ok)
}

func opIsString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tp := TypeOf(c.at(t, stack[1]))
	retBool(stack, tp == TypeString || tp == TypeNumber)
}

func opIsCFunction(c *Call, stack []uint64) {
	t := c.state(stack[0])
	fn, ok := c.at(t, stack[1]).(*lua.LFunction)
	retBool(stack, ok && fn.IsG)
}

func opIsLFunction(c *Call, stack []uint64) {
	t := c.state(stack[0])
	fn, ok := c.at(t, stack[1]).(*lua.LFunction)
	retBool(stack, ok && !fn.IsG)
}

func opIsUserdata(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, TypeOf(c.at(t, stack[1])) == TypeUserdata)
}

func opType(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retI32(stack, int32(TypeOf(c.at(t, stack[1])))) //nolint:gosec // type tags are small
}

func opTypeName(c *Call, stack []uint64) {
	retU32(stack, c.export(TypeName(int(i32v(stack[1])))))
}

func opEqual(c *Call, stack []uint64) {
	t := c.state(stack[0])
	a, b := c.at(t, stack[1]), c.at(t, stack[2])
	retBool(stack, a != nil && b != nil && t.L.Equal(a, b))
}

func opRawEqual(c *Call, stack []uint64) {
	t := c.state(stack[0])
	a, b := c.at(t, stack[1]), c.at(t, stack[2])
	retBool(stack, a != nil && b != nil && t.L.RawEqual(a, b))
}

func opLessThan(c *Call, stack []uint64) {
	t := c.state(stack[0])
	a, b := c.at(t, stack[1]), c.at(t, stack[2])
	retBool(stack, a != nil && b != nil && t.L.LessThan(a, b))
}

func opToNumberX(c *Call, stack []uint64) {
	t := c.state(stack[0])
	f, ok := ToNumber(c.at(t, stack[1]))
	c.storeBool(u32(stack[2]), ok)
	retF64(stack, f)
}

func opToIntegerX(c *Call, stack []uint64) {
	t := c.state(stack[0])
	f, ok := ToNumber(c.at(t, stack[1]))
	c.storeBool(u32(stack[2]), ok)
	retI32(stack, toInt32(f))
}

func opToUnsignedX(c *Call, stack []uint64) {
	t := c.state(stack[0])
	f, ok := ToNumber(c.at(t, stack[1]))
	c.storeBool(u32(stack[2]), ok)
	retU32(stack, toUint32(f))
}

func opToBoolean(c *Call, stack []uint64) {
	t := c.state(stack[0])
	v := c.at(t, stack[1])
	retBool(stack, v != nil && lua.LVAsBool(v))
}

// lua_tolstring converts a number in place, as the C API does.
func opToLString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.tolstring(t, stack[1], u32(stack[2])))
}

func (c *Call) tolstring(t *thread, raw uint64, lenPtr uint32) uint32 {
	v := c.at(t, raw)
	s, ok := ToString(v)
	if !ok {
		c.store(lenPtr, 0)
		return 0
	}
	if _, isNum := v.(lua.LNumber); isNum && !isPseudo(int(i32v(raw))) {
		t.L.Replace(c.slot(t, raw), lua.LString(s))
	}
	return c.exportLen(s, lenPtr)
}

func opObjLen(c *Call, stack []uint64) {
	t := c.state(stack[0])
	var n int
	switch v := c.at(t, stack[1]).(type) {
	case lua.LString:
		n = len(v)
	case lua.LNumber:
		n = len(v.String())
	case *lua.LTable:
		n = v.Len()
	case *lua.LUserData:
		if ud, ok := v.Value.(*userdata); ok {
			n = int(ud.size)
		}
	}
	retI32(stack, int32(n)) //nolint:gosec // lengths of values created through 32-bit plugin memory
}

func opToUserdata(c *Call, stack []uint64) {
	t := c.state(stack[0])
	if ud, ok := c.at(t, stack[1]).(*lua.LUserData); ok {
		if b, ok := ud.Value.(*userdata); ok {
			retU32(stack, b.ptr)
			return
		}
	}
	retU32(stack, 0)
}

func opToThread(c *Call, stack []uint64) {
	t := c.state(stack[0])
	co, ok := c.at(t, stack[1]).(*lua.LState)
	if !ok {
		retU32(stack, 0)
		return
	}
	retU32(stack, uint32(c.env.bind(co).id))
}

// lua_topointer returns an identity token for reference values. Tokens are
// only meant for hashing and debug output.
func opToPointer(c *Call, stack []uint64) {
	t := c.state(stack[0])
	switch v := c.at(t, stack[1]).(type) {
	case *lua.LTable, *lua.LFunction, *lua.LUserData, *lua.LState:
		retU32(stack, uint32(reflect.ValueOf(v).Pointer())) //nolint:gosec // truncated identity token
	default:
		retU32(stack, 0)
	}
}

func (c *Call) storeBool(ptr uint32, v bool) {
	if v {
		c.store(ptr, 1)
	} else {
		c.store(ptr, 0)
	}
}
