package abi

import (
	"encoding/binary"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func opStackDepth(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retI32(stack, int32(stackDepth(t.L))) //nolint:gosec // bounded by the call stack size
}

func stackDepth(L *lua.LState) int {
	n := 0
	for {
		if _, ok := L.GetStack(n); !ok {
			return n
		}
		n++
	}
}

// lua_getinfo(L, level, what, ar) fills the DebugRecordSize-byte record at ar:
// name, what and source pointers, currentline, linedefined, lastlinedefined
// and nups, each 32 bits little endian. With 'f' in what the function is
// pushed as well.
func opGetInfo(c *Call, stack []uint64) {
	t := c.state(stack[0])
	level := int(i32v(stack[1]))
	what, ok := c.cstring(u32(stack[2]))
	if !ok {
		what = "nSl"
	}
	ar := u32(stack[3])

	dbg, ok := t.L.GetStack(level)
	if !ok {
		retBool(stack, false)
		return
	}
	fn, err := t.L.GetInfo(what, dbg, lua.LNil)
	if err != nil {
		c.contract("getinfo: %v", err)
	}
	if strings.Contains(what, "f") {
		c.push(t, fn)
	}

	rec := make([]byte, DebugRecordSize)
	put := func(off int, v uint32) {
		binary.LittleEndian.PutUint32(rec[off:], v)
	}
	put(0, c.optString(dbg.Name))
	put(4, c.optString(dbg.What))
	put(8, c.optString(dbg.Source))
	put(12, uint32(int32(dbg.CurrentLine)))     //nolint:gosec // line numbers
	put(16, uint32(int32(dbg.LineDefined)))     //nolint:gosec // line numbers
	put(20, uint32(int32(dbg.LastLineDefined))) //nolint:gosec // line numbers
	put(24, uint32(dbg.NUpvalues))              //nolint:gosec // upvalue counts are small
	c.write(ar, rec)
	retBool(stack, true)
}

func (c *Call) optString(s string) uint32 {
	if s == "" {
		return 0
	}
	return c.export(s)
}

func opGetLocal(c *Call, stack []uint64) {
	t := c.state(stack[0])
	dbg, ok := t.L.GetStack(int(i32v(stack[1])))
	if !ok {
		retU32(stack, 0)
		return
	}
	name, v := t.L.GetLocal(dbg, int(i32v(stack[2])))
	if name == "" {
		retU32(stack, 0)
		return
	}
	c.push(t, v)
	retU32(stack, c.export(name))
}

func opSetLocal(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.need(t, 1)
	L := t.L
	v := L.Get(-1)
	L.Pop(1)
	dbg, ok := L.GetStack(int(i32v(stack[1])))
	if !ok {
		retU32(stack, 0)
		return
	}
	name := L.SetLocal(dbg, int(i32v(stack[2])), v)
	if name == "" {
		retU32(stack, 0)
		return
	}
	retU32(stack, c.export(name))
}

func opGetUpvalue(c *Call, stack []uint64) {
	t := c.state(stack[0])
	fn := c.function(t, stack[1])
	n := int(i32v(stack[2]))
	if n < 1 || n > len(fn.Upvalues) {
		retU32(stack, 0)
		return
	}
	if fn.IsG {
		c.push(t, fn.Upvalues[n-1].Value())
		retU32(stack, c.export(""))
		return
	}
	name, v := t.L.GetUpvalue(fn, n)
	c.push(t, v)
	retU32(stack, c.export(name))
}

func opSetUpvalue(c *Call, stack []uint64) {
	t := c.state(stack[0])
	fn := c.function(t, stack[1])
	n := int(i32v(stack[2]))
	c.need(t, 1)
	L := t.L
	v := L.Get(-1)
	L.Pop(1)
	if n < 1 || n > len(fn.Upvalues) {
		retU32(stack, 0)
		return
	}
	if fn.IsG {
		fn.Upvalues[n-1].SetValue(v)
		retU32(stack, c.export(""))
		return
	}
	retU32(stack, c.export(L.SetUpvalue(fn, n, v)))
}

// lua_debugtrace returns a traceback of L, one frame per line.
func opDebugTrace(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.export(Traceback(t.L)))
}

// Traceback renders the call stack of L.
func Traceback(L *lua.LState) string {
	var sb strings.Builder
	for level := 0; ; level++ {
		dbg, ok := L.GetStack(level)
		if !ok {
			break
		}
		if _, err := L.GetInfo("Sln", dbg, lua.LNil); err != nil {
			break
		}
		if level > 0 {
			sb.WriteByte('\n')
		}
		name := dbg.Name
		if name == "" {
			name = "?"
		}
		if dbg.CurrentLine > 0 {
			fmt.Fprintf(&sb, "%s:%d function %s", dbg.Source, dbg.CurrentLine, name)
		} else {
			fmt.Fprintf(&sb, "%s function %s", dbg.Source, name)
		}
	}
	return sb.String()
}
