package abi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

var (
	errTableIndexNil = errors.New("table index is nil")
	errTableIndexNaN = errors.New("table index is NaN")
)

func opGetTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	c.need(t, 1)
	L := t.L
	L.Replace(-1, L.GetTable(obj, L.Get(-1)))
}

func opGetField(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	k := c.name(u32(stack[2]))
	c.push(t, t.L.GetField(obj, k))
}

func opRawGetField(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.push(t, tb.RawGetString(c.name(u32(stack[2]))))
}

func opRawGet(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.need(t, 1)
	L := t.L
	L.Replace(-1, tb.RawGet(L.Get(-1)))
}

func opRawGetI(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.push(t, tb.RawGetInt(int(i32v(stack[2]))))
}

func opCreateTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	narr, nrec := max(int(i32v(stack[1])), 0), max(int(i32v(stack[2])), 0)
	c.push(t, t.L.CreateTable(narr, nrec))
}

func opGetMetatable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	v := c.at(t, stack[1])
	if v == nil {
		retBool(stack, false)
		return
	}
	mt := t.L.GetMetatable(v)
	if mt == lua.LNil {
		retBool(stack, false)
		return
	}
	c.push(t, mt)
	retBool(stack, true)
}

func opGetFEnv(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, t.L.GetFEnv(c.value(t, stack[1])))
}

func opSetTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	c.need(t, 2)
	L := t.L
	L.SetTable(obj, L.Get(-2), L.Get(-1))
	L.Pop(2)
}

func opSetField(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	k := c.name(u32(stack[2]))
	c.need(t, 1)
	L := t.L
	L.SetField(obj, k, L.Get(-1))
	L.Pop(1)
}

func opRawSetField(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	k := c.name(u32(stack[2]))
	c.need(t, 1)
	L := t.L
	tb.RawSetString(k, L.Get(-1))
	L.Pop(1)
}

func opRawSet(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.need(t, 2)
	L := t.L
	k := L.Get(-2)
	if k == lua.LNil {
		c.Fail(errTableIndexNil)
	}
	if n, ok := k.(lua.LNumber); ok && math.IsNaN(float64(n)) {
		c.Fail(errTableIndexNaN)
	}
	tb.RawSet(k, L.Get(-1))
	L.Pop(2)
}

func opRawSetI(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.need(t, 1)
	L := t.L
	tb.RawSetInt(int(i32v(stack[2])), L.Get(-1))
	L.Pop(1)
}

func opSetMetatable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	c.need(t, 1)
	L := t.L
	mt := L.Get(-1)
	if mt != lua.LNil && mt.Type() != lua.LTTable {
		c.contract("metatable must be a table or nil, got %s", typeNameOf(mt))
	}
	L.SetMetatable(obj, mt)
	L.Pop(1)
	retBool(stack, true)
}

func opSetFEnv(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	c.need(t, 1)
	L := t.L
	env := L.Get(-1)
	if env.Type() != lua.LTTable {
		c.contract("environment must be a table, got %s", typeNameOf(env))
	}
	L.Pop(1)
	switch obj.(type) {
	case *lua.LFunction, *lua.LUserData, *lua.LState:
		L.SetFEnv(obj, env)
		retBool(stack, true)
	default:
		retBool(stack, false)
	}
}

// lua_next pops a key and pushes the next key-value pair, or nothing at the
// end of the traversal.
func opNext(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	c.need(t, 1)
	L := t.L
	key := L.Get(-1)
	L.Pop(1)
	k, v := tb.Next(key)
	if k == lua.LNil {
		retBool(stack, false)
		return
	}
	c.push(t, k, v)
	retBool(stack, true)
}

// lua_concat replaces the top n values with their concatenation, honouring
// __concat metamethods.
func opConcat(c *Call, stack []uint64) {
	t := c.state(stack[0])
	n := int(i32v(stack[1]))
	L := t.L
	switch {
	case n == 0:
		c.push(t, lua.LString(""))
		return
	case n == 1:
		c.need(t, 1)
		return
	}
	c.need(t, n)
	top := L.GetTop()
	acc := L.Get(top)
	for i := top - 1; i > top-n; i-- {
		acc = concat(c, L, L.Get(i), acc)
	}
	L.Pop(n)
	L.Push(acc)
}

func concat(c *Call, L *lua.LState, a, b lua.LValue) lua.LValue {
	as, aok := ToString(a)
	bs, bok := ToString(b)
	if aok && bok {
		var sb strings.Builder
		sb.Grow(len(as) + len(bs))
		sb.WriteString(as)
		sb.WriteString(bs)
		return lua.LString(sb.String())
	}
	mm := L.GetMetaField(a, "__concat")
	if mm == lua.LNil {
		mm = L.GetMetaField(b, "__concat")
	}
	if mm == lua.LNil {
		bad := a
		if aok {
			bad = b
		}
		c.Fail(fmt.Errorf("attempt to concatenate a %s value", typeNameOf(bad)))
	}
	L.Push(mm)
	L.Push(a)
	L.Push(b)
	L.Call(2, 1)
	v := L.Get(-1)
	L.Pop(1)
	return v
}

func opClearTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tb := c.table(t, stack[1])
	var keys []lua.LValue
	tb.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k)
	})
	for _, k := range keys {
		tb.RawSet(k, lua.LNil)
	}
}
