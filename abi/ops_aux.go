package abi

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// maxOptions bounds the option list read by luaL_checkoption.
const maxOptions = 1024

func (c *Call) argn(raw uint64) int {
	return int(i32v(raw))
}

func opCheckStackL(c *Call, stack []uint64) {
	t := c.state(stack[0])
	msg, _ := c.cstring(u32(stack[2]))
	c.env.CheckStack(t.L, c.argn(stack[1]), msg)
}

func opCheckType(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.env.CheckType(t.L, c.argn(stack[1]), c.argn(stack[2]))
}

func opCheckAny(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.env.CheckAny(t.L, c.argn(stack[1]))
}

func opCheckNumber(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retF64(stack, c.env.CheckNumber(t.L, c.argn(stack[1])))
}

func opOptNumber(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retF64(stack, c.env.OptNumber(t.L, c.argn(stack[1]), f64v(stack[2])))
}

func opCheckInteger(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retI32(stack, int32(c.env.CheckInteger(t.L, c.argn(stack[1])))) //nolint:gosec // saturated to int32
}

func opOptInteger(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retI32(stack, int32(c.env.OptInteger(t.L, c.argn(stack[1]), c.argn(stack[2])))) //nolint:gosec // saturated to int32
}

func opCheckUnsigned(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, toUint32(c.env.CheckNumber(t.L, c.argn(stack[1]))))
}

func opCheckBoolean(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, c.env.CheckBool(t.L, c.argn(stack[1])))
}

func opOptBoolean(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retBool(stack, c.env.OptBool(t.L, c.argn(stack[1]), i32v(stack[2]) != 0))
}

func opCheckLString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	s := c.env.CheckString(t.L, c.argn(stack[1]))
	retU32(stack, c.exportLen(s, u32(stack[2])))
}

// luaL_optlstring(L, narg, def, len) returns def itself, not a copy, when
// the argument is absent.
func opOptLString(c *Call, stack []uint64) {
	t := c.state(stack[0])
	retU32(stack, c.optlstring(t, c.argn(stack[1]), u32(stack[2]), u32(stack[3])))
}

func (c *Call) optlstring(t *thread, n int, def, lenPtr uint32) uint32 {
	if isNoneOrNil(argAt(t.L, n)) {
		s, _ := c.cstring(def)
		c.store(lenPtr, uint32(len(s))) //nolint:gosec // bounded by MaxCString
		return def
	}
	return c.exportLen(c.env.CheckString(t.L, n), lenPtr)
}

// luaL_checkoption(L, narg, def, lst) where lst is a null-terminated array
// of C string pointers.
func opCheckOption(c *Call, stack []uint64) {
	t := c.state(stack[0])
	def, _ := c.cstring(u32(stack[2]))
	options := c.stringList(u32(stack[3]))
	retI32(stack, int32(c.env.CheckOption(t.L, c.argn(stack[1]), def, options))) //nolint:gosec // bounded by maxOptions
}

func (c *Call) stringList(ptr uint32) []string {
	if ptr == 0 {
		c.contract("null option list")
	}
	m := c.memory()
	var list []string
	for i := range uint32(maxOptions) {
		p, ok := m.ReadUint32Le(ptr + 4*i)
		if !ok {
			c.contract("option list at %d outside plugin memory", ptr)
		}
		if p == 0 {
			return list
		}
		list = append(list, c.name(p))
	}
	c.contract("option list at %d is not terminated", ptr)
	return nil
}

func opCheckUdata(c *Call, stack []uint64) {
	t := c.state(stack[0])
	ud := c.env.CheckUserData(t.L, c.argn(stack[1]), c.name(u32(stack[2])))
	if b, ok := ud.Value.(*userdata); ok {
		retU32(stack, b.ptr)
		return
	}
	retU32(stack, 0)
}

// luaL_newmetatable(L, tname) pushes the registry metatable for tname,
// creating it when absent; it returns 1 only on creation.
func opNewMetatable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tname := c.name(u32(stack[1]))
	L := t.L
	if mt := L.GetTypeMetatable(tname); mt != lua.LNil {
		c.push(t, mt)
		retBool(stack, false)
		return
	}
	c.push(t, L.NewTypeMetatable(tname))
	retBool(stack, true)
}

func opGetMetafield(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	v := t.L.GetMetaField(obj, c.name(u32(stack[2])))
	if v == lua.LNil {
		retBool(stack, false)
		return
	}
	c.push(t, v)
	retBool(stack, true)
}

func opCallMeta(c *Call, stack []uint64) {
	t := c.state(stack[0])
	obj := c.value(t, stack[1])
	L := t.L
	mm := L.GetMetaField(obj, c.name(u32(stack[2])))
	if mm == lua.LNil {
		retBool(stack, false)
		return
	}
	c.push(t, mm, obj)
	L.Call(1, 1)
	retBool(stack, true)
}

func opArgError(c *Call, stack []uint64) {
	t := c.state(stack[0])
	extra, _ := c.cstring(u32(stack[2]))
	c.env.ArgError(t.L, c.argn(stack[1]), extra)
}

func opTypeError(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.env.TypeError(t.L, c.argn(stack[1]), c.name(u32(stack[2])))
}

// luaL_where(L, lvl) pushes "chunk:line:" for the given level, or "".
func opWhere(c *Call, stack []uint64) {
	t := c.state(stack[0])
	c.push(t, lua.LString(where(t.L, c.argn(stack[1]))))
}

func where(L *lua.LState, level int) string {
	dbg, ok := L.GetStack(level)
	if !ok {
		return ""
	}
	if _, err := L.GetInfo("Sl", dbg, lua.LNil); err != nil || dbg.CurrentLine <= 0 {
		return ""
	}
	return shortSource(dbg.Source) + ":" + strconv.Itoa(dbg.CurrentLine) + ":"
}

func shortSource(src string) string {
	if strings.HasPrefix(src, "@") || strings.HasPrefix(src, "=") {
		return src[1:]
	}
	return src
}

// luaL_tolstring(L, idx, len) pushes the string form of any value, using
// __tostring when present.
func opToLStringL(c *Call, stack []uint64) {
	t := c.state(stack[0])
	v := c.value(t, stack[1])
	s := t.L.ToStringMeta(v).String()
	c.push(t, lua.LString(s))
	retU32(stack, c.exportLen(s, u32(stack[2])))
}

// luaL_register(L, libname, l) sets the functions of the luaL_Reg array l
// into the library table: package.loaded[libname] (created as a global when
// missing) or, with a null libname, the table on top of the stack. The table
// is left on top.
func opRegister(c *Call, stack []uint64) {
	t := c.state(stack[0])
	L := t.L
	regs := c.regList(u32(stack[2]))

	var lib *lua.LTable
	if libname, ok := c.cstring(u32(stack[1])); ok {
		loaded, _ := L.GetField(L.Get(RegistryIndex), "_LOADED").(*lua.LTable)
		if loaded == nil {
			c.contract("package.loaded is missing")
		}
		lib, _ = loaded.RawGetString(libname).(*lua.LTable)
		if lib == nil {
			var bad string
			lib, bad = findTable(L, L.G.Global, libname, len(regs))
			if lib == nil {
				c.Fail(fmt.Errorf("name conflict for module %q at %q", libname, bad))
			}
			loaded.RawSetString(libname, lib)
		}
		c.push(t, lib)
	} else {
		c.need(t, 1)
		tb, ok := L.Get(-1).(*lua.LTable)
		if !ok {
			c.contract("luaL_register with a null name needs a table on top of the stack")
		}
		lib = tb
	}
	for _, r := range regs {
		lib.RawSetString(r.name, c.env.GuestFunction(L, c.guest, r.fn, r.name))
	}
}

type reg struct {
	name string
	fn   uint32
}

func (c *Call) regList(ptr uint32) []reg {
	if ptr == 0 {
		return nil
	}
	m := c.memory()
	var regs []reg
	for i := uint32(0); ; i++ {
		rec, ok := m.Read(ptr+i*RegRecordSize, RegRecordSize)
		if !ok {
			c.contract("luaL_Reg array at %d outside plugin memory", ptr)
		}
		namePtr := binary.LittleEndian.Uint32(rec)
		if namePtr == 0 {
			return regs
		}
		regs = append(regs, reg{name: c.name(namePtr), fn: binary.LittleEndian.Uint32(rec[4:])})
	}
}

// luaL_findtable(L, idx, fname, szhint) walks the dotted path fname from the
// table at idx, creating missing tables, and pushes the last one. On a
// non-table component it returns a pointer to the offending name and pushes
// nothing.
func opFindTable(c *Call, stack []uint64) {
	t := c.state(stack[0])
	root := c.table(t, stack[1])
	tb, bad := findTable(t.L, root, c.name(u32(stack[2])), c.argn(stack[3]))
	if tb == nil {
		retU32(stack, c.export(bad))
		return
	}
	c.push(t, tb)
	retU32(stack, 0)
}

func findTable(L *lua.LState, root *lua.LTable, fname string, hint int) (*lua.LTable, string) {
	tb := root
	rest := fname
	for {
		part, tail, more := strings.Cut(rest, ".")
		v := L.GetField(tb, part)
		switch next := v.(type) {
		case *lua.LTable:
			tb = next
		default:
			if v != lua.LNil {
				return nil, rest
			}
			size := 0
			if !more {
				size = max(hint, 0)
			}
			created := L.CreateTable(0, size)
			L.SetField(tb, part, created)
			tb = created
		}
		if !more {
			return tb, ""
		}
		rest = tail
	}
}
