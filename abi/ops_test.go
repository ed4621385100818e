package abi_test

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
	"github.com/seal-runtime/seal-abi/abi/abitest"
)

var (
	h   = abitest.H
	i32 = abitest.I32
	u32 = abitest.U32
	f64 = abitest.F64
)

func newPlugin(t *testing.T, opts ...abi.EnvOption) (*abi.Env, *abitest.Plugin) {
	t.Helper()
	env := newEnv(t, opts...)
	return env, abitest.New(env, "test")
}

func TestStack_Shape(t *testing.T) {
	_, p := newPlugin(t)

	var abs int32
	values, err := p.Run("shape", func(p *abitest.Plugin, L abi.State) int32 {
		for _, v := range []int32{1, 2, 3} {
			p.Call("lua_pushinteger", h(L), i32(v))
		}
		p.Call("lua_insert", h(L), i32(1))  // 3 1 2
		p.Call("lua_remove", h(L), i32(2))  // 3 2
		p.Call("lua_pushinteger", h(L), i32(9))
		p.Call("lua_replace", h(L), i32(1)) // 9 2
		p.Call("lua_pushvalue", h(L), i32(-1))
		abs = abitest.AsI32(p.Call("lua_absindex", h(L), i32(-1)))
		return abitest.AsI32(p.Call("lua_gettop", h(L)))
	})
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LNumber(9), lua.LNumber(2), lua.LNumber(2)}, values)
	assert.Equal(t, int32(3), abs)
}

func TestStack_Arguments(t *testing.T) {
	_, p := newPlugin(t)

	values, err := p.Run("args", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_settop", h(L), i32(1))
		return 1
	}, lua.LString("first"), lua.LString("second"))
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LString("first")}, values)
}

func TestStack_CapacityOverflow(t *testing.T) {
	env, p := newPlugin(t)

	pushed := 0
	_, err := p.Run("fill", func(p *abitest.Plugin, L abi.State) int32 {
		for range abi.MinStack + 1 {
			p.Call("lua_pushnil", h(L))
			pushed++
		}
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "lua_pushnil: stack overflow: 20 slots in use, capacity 20", re.Message)
	assert.Equal(t, "contract", re.Kind)
	assert.Equal(t, abi.MinStack, pushed)
	assert.Zero(t, env.Depth())
}

func TestStack_CapacityCountsArguments(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("args", func(p *abitest.Plugin, L abi.State) int32 {
		for range abi.MinStack {
			p.Call("lua_pushnil", h(L))
		}
		return 0
	}, lua.LTrue, lua.LTrue)
	assert.NoError(t, err)
}

func TestStack_CheckStackGrows(t *testing.T) {
	_, p := newPlugin(t)

	var ok uint64
	var top int32
	_, err := p.Run("grow", func(p *abitest.Plugin, L abi.State) int32 {
		ok = p.Call("lua_checkstack", h(L), i32(50))
		for i := range int32(50) {
			p.Call("lua_pushinteger", h(L), i32(i))
		}
		top = abitest.AsI32(p.Call("lua_gettop", h(L)))
		p.Call("lua_settop", h(L), i32(0))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ok)
	assert.Equal(t, int32(50), top)
}

func TestStack_CheckStackLimit(t *testing.T) {
	_, p := newPlugin(t, abi.WithMaxStack(100))

	var ok, negative uint64
	_, err := p.Run("grow", func(p *abitest.Plugin, L abi.State) int32 {
		ok = p.Call("lua_checkstack", h(L), i32(200))
		negative = p.Call("lua_checkstack", h(L), i32(-1))
		p.Call("luaL_checkstack", h(L), i32(200), u32(p.CString("too many")))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "grow: stack overflow (too many)", re.Message)
	assert.Equal(t, "contract", re.Kind)
	assert.Zero(t, ok)
	assert.Zero(t, negative)
}

func TestStack_CheckStackBoundedByRegistry(t *testing.T) {
	_, p := newPlugin(t)
	require.Equal(t, lua.RegistrySize, abi.RegistryCapacity(p.Env().Main().Options))
	require.Greater(t, abi.DefaultMaxStack, lua.RegistrySize)

	var tooMany, some uint64
	_, err := p.Run("grow", func(p *abitest.Plugin, L abi.State) int32 {
		tooMany = p.Call("lua_checkstack", h(L), i32(7000))
		some = p.Call("lua_checkstack", h(L), i32(100))
		p.Call("luaL_checkstack", h(L), i32(7000), u32(p.CString("values")))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "grow: stack overflow (values)", re.Message)
	assert.Zero(t, tooMany)
	assert.Equal(t, uint64(1), some)
}

func TestStack_CheckStackGrowingRegistry(t *testing.T) {
	L := lua.NewState(lua.Options{RegistrySize: 1024, RegistryMaxSize: 16 * 1024})
	t.Cleanup(L.Close)
	env := abi.NewEnv(L)
	t.Cleanup(env.Close)
	p := abitest.New(env, "test")

	var ok uint64
	var top int32
	_, err := p.Run("grow", func(p *abitest.Plugin, L abi.State) int32 {
		ok = p.Call("lua_checkstack", h(L), i32(7000))
		for i := range int32(7000) {
			p.Call("lua_pushinteger", h(L), i32(i))
		}
		top = abitest.AsI32(p.Call("lua_gettop", h(L)))
		p.Call("lua_settop", h(L), i32(0))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ok)
	assert.Equal(t, int32(7000), top)
}

func TestRegistryCapacity(t *testing.T) {
	assert.Equal(t, lua.RegistrySize, abi.RegistryCapacity(lua.Options{}))
	assert.Equal(t, 1024, abi.RegistryCapacity(lua.Options{RegistrySize: 1024}))
	assert.Equal(t, 4096, abi.RegistryCapacity(lua.Options{RegistrySize: 1024, RegistryMaxSize: 4096}))
}

func TestStack_IndexValidation(t *testing.T) {
	tests := []struct {
		name    string
		index   int32
		want    int32
		wantErr string
	}{
		{name: "above top within capacity", index: 5, want: abi.TypeNone},
		{name: "globals", index: abi.GlobalsIndex, want: abi.TypeTable},
		{name: "registry", index: abi.RegistryIndex, want: abi.TypeTable},
		{name: "above capacity", index: 21, wantErr: "lua_type: index 21 above stack capacity 20"},
		{name: "zero", index: 0, wantErr: "lua_type: index 0 is not a stack index"},
		{name: "below bottom", index: -1, wantErr: "lua_type: index -1 below the bottom of a stack of 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newPlugin(t)

			var got int32
			_, err := p.Run("inspect", func(p *abitest.Plugin, L abi.State) int32 {
				got = abitest.AsI32(p.Call("lua_type", h(L), i32(tt.index)))
				return 0
			})
			if tt.wantErr != "" {
				re := runtimeError(t, err)
				assert.Equal(t, tt.wantErr, re.Message)
				assert.Equal(t, "contract", re.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStack_InvalidHandle(t *testing.T) {
	tests := map[string]struct {
		handle uint32
		want   string
	}{
		"unknown": {handle: 999, want: "lua_gettop: invalid state handle 999"},
		"null":    {handle: 0, want: "lua_gettop: null state handle"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, p := newPlugin(t)
			_, err := p.Run("inspect", func(p *abitest.Plugin, _ abi.State) int32 {
				p.Call("lua_gettop", u32(tt.handle))
				return 0
			})
			re := runtimeError(t, err)
			assert.Equal(t, tt.want, re.Message)
		})
	}
}

func TestStack_XMove(t *testing.T) {
	_, p := newPlugin(t)

	var coTop, mainTop int32
	_, err := p.Run("xmove", func(p *abitest.Plugin, L abi.State) int32 {
		co := abi.State(p.Call("lua_newthread", h(L)))
		p.Call("lua_pushinteger", h(L), i32(1))
		p.Call("lua_pushinteger", h(L), i32(2))
		p.Call("lua_xmove", h(L), h(co), i32(2))
		coTop = abitest.AsI32(p.Call("lua_gettop", h(co)))
		mainTop = abitest.AsI32(p.Call("lua_gettop", h(L)))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), coTop)
	assert.Equal(t, int32(1), mainTop)
}

func TestStrings_EmbeddedZeros(t *testing.T) {
	_, p := newPlugin(t)

	raw := []byte("a\x00b\x00")
	var length uint32
	var copied []byte
	values, err := p.Run("bytes", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushlstring", h(L), u32(p.Bytes(raw)), u32(uint32(len(raw))))
		lenPtr := p.Scratch(4)
		ptr := uint32(p.Call("lua_tolstring", h(L), i32(-1), u32(lenPtr)))
		length = p.ReadU32(lenPtr)
		copied = p.ReadBytes(ptr, length+1)
		return 1
	})
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LString(raw)}, values)
	assert.Equal(t, uint32(len(raw)), length)
	assert.Equal(t, append(raw, 0), copied)
	assert.Zero(t, p.Live(), "scratch strings outlived the call")
}

func TestStrings_Conversions(t *testing.T) {
	_, p := newPlugin(t)

	var (
		numText  string
		numType  int32
		tblPtr   uint64
		nilType  int32
		typeName string
	)
	_, err := p.Run("conv", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushnumber", h(L), f64(42))
		numText = p.ReadCString(uint32(p.Call("lua_tolstring", h(L), i32(-1), u32(0))))
		numType = abitest.AsI32(p.Call("lua_type", h(L), i32(-1)))

		p.Call("lua_createtable", h(L), i32(0), i32(0))
		tblPtr = p.Call("lua_tolstring", h(L), i32(-1), u32(0))

		p.Call("lua_pushstring", h(L), u32(0))
		nilType = abitest.AsI32(p.Call("lua_type", h(L), i32(-1)))

		typeName = p.ReadCString(uint32(p.Call("lua_typename", h(L), i32(abi.TypeFunction))))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, "42", numText)
	assert.Equal(t, int32(abi.TypeString), numType, "number converted in place")
	assert.Zero(t, tblPtr)
	assert.Equal(t, int32(abi.TypeNil), nilType)
	assert.Equal(t, "function", typeName)
}

func TestStrings_Unterminated(t *testing.T) {
	_, p := newPlugin(t, abi.WithMaxCString(8))

	_, err := p.Run("long", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushstring", h(L), u32(p.CString("much longer than eight")))
		return 0
	})
	re := runtimeError(t, err)
	assert.Contains(t, re.Message, "not terminated within 8 bytes")
	assert.Equal(t, "conversion", re.Kind)
}

func TestStrings_OutOfBounds(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("oob", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushlstring", h(L), u32(abitest.DefaultMemorySize-2), u32(4))
		return 0
	})
	re := runtimeError(t, err)
	assert.Contains(t, re.Message, "outside plugin memory")
	assert.Equal(t, "contract", re.Kind)
}

func TestNumbers(t *testing.T) {
	_, p := newPlugin(t)

	var (
		hex, bad          float64
		hexOK, badOK      uint32
		trunc, negTrunc   int32
		wrapped           uint32
		less, eq, raw, tb uint64
	)
	_, err := p.Run("numbers", func(p *abitest.Plugin, L abi.State) int32 {
		flag := p.Scratch(4)
		p.Call("lua_pushstring", h(L), u32(p.CString("0x10")))
		hex = abitest.AsF64(p.Call("lua_tonumberx", h(L), i32(-1), u32(flag)))
		hexOK = p.ReadU32(flag)

		p.Call("lua_pushstring", h(L), u32(p.CString("abc")))
		bad = abitest.AsF64(p.Call("lua_tonumberx", h(L), i32(-1), u32(flag)))
		badOK = p.ReadU32(flag)

		p.Call("lua_pushnumber", h(L), f64(3.9))
		trunc = abitest.AsI32(p.Call("lua_tointegerx", h(L), i32(-1), u32(0)))
		p.Call("lua_pushnumber", h(L), f64(-3.9))
		negTrunc = abitest.AsI32(p.Call("lua_tointegerx", h(L), i32(-1), u32(0)))
		p.Call("lua_pushinteger", h(L), i32(-1))
		wrapped = uint32(p.Call("lua_tounsignedx", h(L), i32(-1), u32(0)))

		p.Call("lua_settop", h(L), i32(0))
		p.Call("lua_pushinteger", h(L), i32(1))
		p.Call("lua_pushinteger", h(L), i32(2))
		less = p.Call("lua_lessthan", h(L), i32(1), i32(2))
		eq = p.Call("lua_equal", h(L), i32(1), i32(2))
		raw = p.Call("lua_rawequal", h(L), i32(1), i32(1))
		tb = p.Call("lua_toboolean", h(L), i32(5))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, 16.0, hex)
	assert.Equal(t, uint32(1), hexOK)
	assert.Zero(t, bad)
	assert.Zero(t, badOK)
	assert.Equal(t, int32(3), trunc)
	assert.Equal(t, int32(-3), negTrunc)
	assert.Equal(t, uint32(0xffffffff), wrapped)
	assert.Equal(t, uint64(1), less)
	assert.Zero(t, eq)
	assert.Equal(t, uint64(1), raw)
	assert.Zero(t, tb)
}

func TestErrors_FromPlugin(t *testing.T) {
	t.Run("errorL", func(t *testing.T) {
		_, p := newPlugin(t)
		_, err := p.Run("fail", func(p *abitest.Plugin, L abi.State) int32 {
			msg := []byte("boom")
			p.Call("luaL_errorL", h(L), u32(p.Bytes(msg)), u32(uint32(len(msg))))
			return 0
		})
		re := runtimeError(t, err)
		assert.Equal(t, "boom", re.Message)
		assert.Equal(t, "runtime", re.Kind)
	})

	t.Run("errorL with NUL", func(t *testing.T) {
		_, p := newPlugin(t)
		_, err := p.Run("fail", func(p *abitest.Plugin, L abi.State) int32 {
			msg := []byte("bad\x00msg")
			p.Call("luaL_errorL", h(L), u32(p.Bytes(msg)), u32(uint32(len(msg))))
			return 0
		})
		re := runtimeError(t, err)
		assert.Equal(t, "message: conversion failed: embedded NUL byte at offset 3", re.Message)
		assert.Equal(t, "conversion", re.Kind)
	})

	t.Run("lua_error raises the value unchanged", func(t *testing.T) {
		_, p := newPlugin(t)
		_, err := p.Run("fail", func(p *abitest.Plugin, L abi.State) int32 {
			p.Call("lua_pushstring", h(L), u32(p.CString("raw")))
			p.Call("lua_error", h(L))
			return 0
		})
		re := runtimeError(t, err)
		assert.Equal(t, "raw", re.Message)
	})

	t.Run("seal_error_wrap records the script location", func(t *testing.T) {
		env, p := newPlugin(t)
		L := env.Main()
		fn := p.Register(func(p *abitest.Plugin, L abi.State) int32 {
			msg := []byte("wrapped")
			n := p.Call("seal_error_wrap", h(L), u32(p.Bytes(msg)), u32(uint32(len(msg))))
			require.Equal(t, uint64(1), n)
			p.Call("lua_error", h(L))
			return 0
		})
		L.SetGlobal("failer", env.GuestFunction(L, p, fn, "failer"))

		re := runtimeError(t, abi.Error(L.DoString("local x\nfailer()")))
		assert.Equal(t, "wrapped", re.Message)
		assert.Equal(t, "runtime", re.Kind)
		assert.Equal(t, 2, re.Line)
	})

	t.Run("seal_wrap_function", func(t *testing.T) {
		env, p := newPlugin(t)
		L := env.Main()
		require.NoError(t, L.DoString(`function plain() error("plain failure", 0) end`))

		values, err := p.Run("wrap", func(p *abitest.Plugin, L abi.State) int32 {
			p.Call("lua_getglobal", h(L), u32(p.CString("plain")))
			p.Call("seal_wrap_function", h(L), i32(-1))
			p.Call("lua_pcall", h(L), i32(0), i32(0), i32(0))
			return 1
		})
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.True(t, abi.IsWrapped(values[0]))
		assert.Equal(t, "plain failure", abi.ErrorMessage(values[0]))
	})
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, p := newPlugin(t, abi.WithLogger(logger))

	_, err := p.Run("logger", func(p *abitest.Plugin, L abi.State) int32 {
		msg := []byte("hello")
		p.Call("seal_log", h(L), i32(int32(slog.LevelWarn)), u32(p.Bytes(msg)), u32(uint32(len(msg))))
		return 0
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"plugin":"test"`)
	assert.Contains(t, out, `"function":"logger"`)
}

func TestTables(t *testing.T) {
	_, p := newPlugin(t)

	var keys int
	values, err := p.Run("tables", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_createtable", h(L), i32(1), i32(1))
		p.Call("lua_pushstring", h(L), u32(p.CString("v")))
		p.Call("lua_setfield", h(L), i32(-2), u32(p.CString("k")))
		p.Call("lua_pushinteger", h(L), i32(10))
		p.Call("lua_rawseti", h(L), i32(-2), i32(1))

		p.Call("lua_pushnil", h(L))
		for p.Call("lua_next", h(L), i32(1)) != 0 {
			keys++
			p.Call("lua_pop", h(L), i32(1))
		}

		p.Call("lua_getfield", h(L), i32(1), u32(p.CString("k")))
		p.Call("lua_rawgeti", h(L), i32(1), i32(1))
		return 3
	})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.IsType(t, &lua.LTable{}, values[0])
	assert.Equal(t, lua.LString("v"), values[1])
	assert.Equal(t, lua.LNumber(10), values[2])
	assert.Equal(t, 2, keys)
}

func TestTables_NilKey(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("rawset", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_createtable", h(L), i32(0), i32(0))
		p.Call("lua_pushnil", h(L))
		p.Call("lua_pushinteger", h(L), i32(1))
		p.Call("lua_rawset", h(L), i32(-3))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "table index is nil", re.Message)
}

func TestTables_NotATable(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("rawget", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushinteger", h(L), i32(1))
		p.Call("lua_rawgeti", h(L), i32(-1), i32(1))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "lua_rawgeti: table expected at index -1, got number", re.Message)
}

func TestConcat(t *testing.T) {
	_, p := newPlugin(t)

	values, err := p.Run("concat", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushstring", h(L), u32(p.CString("a")))
		p.Call("lua_pushinteger", h(L), i32(1))
		p.Call("lua_pushstring", h(L), u32(p.CString("b")))
		p.Call("lua_concat", h(L), i32(3))
		p.Call("lua_concat", h(L), i32(0))
		return 2
	})
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LString("a1b"), lua.LString("")}, values)

	_, err = p.Run("concat", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushstring", h(L), u32(p.CString("a")))
		p.Call("lua_newtable", h(L))
		p.Call("lua_concat", h(L), i32(2))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "attempt to concatenate a table value", re.Message)
}

func TestRefs(t *testing.T) {
	_, p := newPlugin(t)

	var first, second, nilRef int32
	values, err := p.Run("refs", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushinteger", h(L), i32(5))
		first = abitest.AsI32(p.Call("lua_ref", h(L), i32(-1)))
		p.Call("lua_unref", h(L), i32(first))

		p.Call("lua_pushinteger", h(L), i32(6))
		second = abitest.AsI32(p.Call("lua_ref", h(L), i32(-1)))

		p.Call("lua_pushnil", h(L))
		nilRef = abitest.AsI32(p.Call("lua_ref", h(L), i32(-1)))

		p.Call("lua_settop", h(L), i32(0))
		p.Call("lua_getref", h(L), i32(second))
		p.Call("lua_getref", h(L), i32(nilRef))
		return 2
	})
	require.NoError(t, err)
	assert.Positive(t, first)
	assert.Equal(t, first, second, "released refs are reused")
	assert.Equal(t, int32(abi.RefNil), nilRef)
	assert.Equal(t, []lua.LValue{lua.LNumber(6), lua.LNil}, values)
}

// regs lays out a luaL_Reg array terminated by a null record.
func regs(p *abitest.Plugin, funcs map[string]uint32) uint32 {
	buf := make([]byte, 0, (len(funcs)+1)*abi.RegRecordSize)
	for name, fn := range funcs {
		buf = binary.LittleEndian.AppendUint32(buf, p.CString(name))
		buf = binary.LittleEndian.AppendUint32(buf, fn)
	}
	buf = append(buf, make([]byte, abi.RegRecordSize)...)
	return p.Bytes(buf)
}

func TestRegister(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()

	pushString := func(s string) abitest.Func {
		return func(p *abitest.Plugin, L abi.State) int32 {
			p.Call("lua_pushstring", h(L), u32(p.CString(s)))
			return 1
		}
	}
	list := regs(p, map[string]uint32{
		"hello": p.Register(pushString("hi")),
		"bang":  p.Register(pushString("!")),
	})

	_, err := p.Run("open", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("luaL_register", h(L), u32(p.CString("mylib")), u32(list))
		return 0
	})
	require.NoError(t, err)

	require.NoError(t, L.DoString(`result = mylib.hello() .. package.loaded.mylib.bang()`))
	assert.Equal(t, lua.LString("hi!"), L.GetGlobal("result"))

	values, err := p.Run("open", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_newtable", h(L))
		p.Call("luaL_register", h(L), u32(0), u32(list))
		return 1
	})
	require.NoError(t, err)
	require.Len(t, values, 1)
	tb := values[0].(*lua.LTable)
	assert.Equal(t, lua.LTFunction, tb.RawGetString("hello").Type())
	assert.Equal(t, lua.LTFunction, tb.RawGetString("bang").Type())
}

func TestCheckOption(t *testing.T) {
	_, p := newPlugin(t)

	options := binary.LittleEndian.AppendUint32(nil, p.CString("read"))
	options = binary.LittleEndian.AppendUint32(options, p.CString("write"))
	options = binary.LittleEndian.AppendUint32(options, 0)
	list := p.Bytes(options)
	def := p.CString("read")

	choose := func(p *abitest.Plugin, L abi.State) int32 {
		n := p.Call("luaL_checkoption", h(L), i32(1), u32(def), u32(list))
		p.Call("lua_pushinteger", h(L), n)
		return 1
	}

	values, err := p.Run("open", choose, lua.LString("write"))
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LNumber(1)}, values)

	values, err = p.Run("open", choose)
	require.NoError(t, err)
	assert.Equal(t, []lua.LValue{lua.LNumber(0)}, values)

	_, err = p.Run("open", choose, lua.LString("exec"))
	re := runtimeError(t, err)
	assert.Equal(t, "bad argument #1 to 'open' (invalid option 'exec')", re.Message)
	assert.Equal(t, "argument", re.Kind)
}

func TestDebugInfo(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()

	var (
		found, missing uint64
		line           uint32
		source, where  string
		depth          int32
	)
	inspect := p.Register(func(p *abitest.Plugin, L abi.State) int32 {
		ar := p.Scratch(abi.DebugRecordSize)
		found = p.Call("lua_getinfo", h(L), i32(1), u32(p.CString("Sl")), u32(ar))
		line = p.ReadU32(ar + 12)
		source = p.ReadCString(p.ReadU32(ar + 8))
		missing = p.Call("lua_getinfo", h(L), i32(50), u32(p.CString("Sl")), u32(ar))

		p.Call("luaL_where", h(L), i32(1))
		where = p.ReadCString(uint32(p.Call("lua_tolstring", h(L), i32(-1), u32(0))))
		depth = abitest.AsI32(p.Call("lua_stackdepth", h(L)))
		return 0
	})
	L.SetGlobal("inspect", env.GuestFunction(L, p, inspect, "inspect"))

	require.NoError(t, L.DoString("local a = 1\ninspect()"))
	assert.Equal(t, uint64(1), found)
	assert.Zero(t, missing)
	assert.Equal(t, uint32(2), line)
	assert.Equal(t, "<string>", source)
	assert.Equal(t, "<string>:2:", where)
	assert.GreaterOrEqual(t, depth, int32(2))
}

func TestCoroutines_Resume(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()
	require.NoError(t, L.DoString(`function gen() coroutine.yield(5) return 6 end`))

	var (
		first, second, costatus int32
		yielded, returned       float64
		yieldable               uint64
	)
	_, err := p.Run("driver", func(p *abitest.Plugin, L abi.State) int32 {
		co := abi.State(p.Call("lua_newthread", h(L)))
		p.Call("lua_getglobal", h(co), u32(p.CString("gen")))

		first = abitest.AsI32(p.Call("lua_resume", h(co), u32(0), i32(0)))
		yielded = abitest.AsF64(p.Call("lua_tonumber", h(co), i32(-1)))
		p.Call("lua_settop", h(co), i32(0))

		second = abitest.AsI32(p.Call("lua_resume", h(co), u32(0), i32(0)))
		returned = abitest.AsF64(p.Call("lua_tonumber", h(co), i32(-1)))
		costatus = abitest.AsI32(p.Call("lua_costatus", h(L), h(co)))
		yieldable = p.Call("lua_isyieldable", h(L))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, int32(abi.StatusYield), first)
	assert.Equal(t, 5.0, yielded)
	assert.Equal(t, int32(abi.StatusOK), second)
	assert.Equal(t, 6.0, returned)
	assert.Equal(t, int32(abi.CoFinished), costatus)
	assert.Zero(t, yieldable)
}

func TestCoroutines_ResumeDead(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()
	require.NoError(t, L.DoString(`function once() return 1 end`))

	var status int32
	var msg string
	_, err := p.Run("driver", func(p *abitest.Plugin, L abi.State) int32 {
		co := abi.State(p.Call("lua_newthread", h(L)))
		p.Call("lua_getglobal", h(co), u32(p.CString("once")))
		p.Call("lua_resume", h(co), u32(0), i32(0))
		p.Call("lua_settop", h(co), i32(0))

		status = abitest.AsI32(p.Call("lua_resume", h(co), u32(0), i32(0)))
		msg = p.ReadCString(uint32(p.Call("lua_tolstring", h(co), i32(-1), u32(0))))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, int32(abi.StatusErrRun), status)
	assert.Equal(t, "cannot resume dead coroutine", msg)
}

func TestCoroutines_YieldFromNative(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()

	gen := p.Register(func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_pushinteger", h(L), i32(1))
		return abitest.AsI32(p.Call("lua_yield", h(L), i32(1)))
	})
	L.SetGlobal("gen", env.GuestFunction(L, p, gen, "gen"))

	require.NoError(t, L.DoString(`
		local co = coroutine.create(function()
			local v = gen()
			return "done:" .. tostring(v)
		end)
		ok1, v1 = coroutine.resume(co)
		ok2, v2 = coroutine.resume(co, "x")
		st = coroutine.status(co)
	`))
	assert.Equal(t, lua.LTrue, L.GetGlobal("ok1"))
	assert.Equal(t, lua.LNumber(1), L.GetGlobal("v1"))
	assert.Equal(t, lua.LTrue, L.GetGlobal("ok2"))
	assert.Equal(t, lua.LString("done:x"), L.GetGlobal("v2"))
	assert.Equal(t, lua.LString("dead"), L.GetGlobal("st"))
	assert.Zero(t, env.Depth())
}

func TestCoroutines_YieldOutsideCoroutine(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("main", func(p *abitest.Plugin, L abi.State) int32 {
		return abitest.AsI32(p.Call("lua_yield", h(L), i32(0)))
	})
	re := runtimeError(t, err)
	assert.Equal(t, "lua_yield: attempt to yield from outside a coroutine", re.Message)
}

func TestThreads_Reset(t *testing.T) {
	env, p := newPlugin(t)
	L := env.Main()
	require.NoError(t, L.DoString(`function gen() coroutine.yield(1) end`))

	var before, after uint64
	var status int32
	_, err := p.Run("driver", func(p *abitest.Plugin, L abi.State) int32 {
		co := abi.State(p.Call("lua_newthread", h(L)))
		p.Call("lua_getglobal", h(co), u32(p.CString("gen")))
		p.Call("lua_resume", h(co), u32(0), i32(0))
		before = p.Call("lua_isthreadreset", h(co))

		p.Call("lua_resetthread", h(co))
		after = p.Call("lua_isthreadreset", h(co))
		status = abitest.AsI32(p.Call("lua_status", h(co)))
		return 0
	})
	require.NoError(t, err)
	assert.Zero(t, before)
	assert.Equal(t, uint64(1), after)
	assert.Equal(t, int32(abi.StatusOK), status)
}

func TestThreads_MainThread(t *testing.T) {
	_, p := newPlugin(t)

	var main uint32
	var isMain, coIsMain uint64
	_, err := p.Run("threads", func(p *abitest.Plugin, L abi.State) int32 {
		co := abi.State(p.Call("lua_newthread", h(L)))
		main = uint32(p.Call("lua_mainthread", h(co)))
		isMain = p.Call("lua_pushthread", h(L))
		coIsMain = p.Call("lua_pushthread", h(co))
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), main)
	assert.Equal(t, uint64(1), isMain)
	assert.Zero(t, coIsMain)
}

func TestStates_NewAndClose(t *testing.T) {
	_, p := newPlugin(t)

	var top int32
	_, err := p.Run("states", func(p *abitest.Plugin, L abi.State) int32 {
		s := abi.State(p.Call("luaL_newstate"))
		p.Call("lua_pushinteger", h(s), i32(1))
		top = abitest.AsI32(p.Call("lua_gettop", h(s)))
		p.Call("lua_close", h(s))
		p.Call("lua_gettop", h(s))
		return 0
	})
	re := runtimeError(t, err)
	assert.Contains(t, re.Message, "invalid state handle")
	assert.Equal(t, int32(1), top)

	_, err = p.Run("states", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_close", h(L))
		return 0
	})
	re = runtimeError(t, err)
	assert.Equal(t, "lua_close: state 1 was not created by luaL_newstate", re.Message)
}

func TestLoadBuffer(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		status  int32
		message string
	}{
		{name: "ok", src: "return 1 + 1", status: abi.StatusOK},
		{name: "syntax", src: "return +", status: abi.StatusErrSyntax},
		{name: "bytecode", src: "\x1bLua", status: abi.StatusErrSyntax, message: "bytecode chunks are not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newPlugin(t)

			var status int32
			values, err := p.Run("load", func(p *abitest.Plugin, L abi.State) int32 {
				src := []byte(tt.src)
				status = abitest.AsI32(p.Call("luaL_loadbuffer", h(L), u32(p.Bytes(src)),
					u32(uint32(len(src))), u32(p.CString("=chunk"))))
				if status == abi.StatusOK {
					p.Call("lua_call", h(L), i32(0), i32(1))
				}
				return 1
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			require.Len(t, values, 1)
			if tt.status == abi.StatusOK {
				assert.Equal(t, lua.LNumber(2), values[0])
				return
			}
			assert.Equal(t, lua.LTString, values[0].Type())
			if tt.message != "" {
				assert.Equal(t, lua.LString(tt.message), values[0])
			}
		})
	}
}

func TestPCall_Status(t *testing.T) {
	env, p := newPlugin(t)
	require.NoError(t, env.Main().DoString(`
		function boom() error("x", 0) end
		function handler(e) return "handled: " .. e end
		function broken(e) error("again", 0) end
	`))

	tests := []struct {
		name    string
		handler string
		status  int32
		value   lua.LValue
	}{
		{name: "no handler", status: abi.StatusErrRun, value: lua.LString("x")},
		{name: "handler", handler: "handler", status: abi.StatusErrRun, value: lua.LString("handled: x")},
		{name: "handler raises", handler: "broken", status: abi.StatusErrErr, value: lua.LString("again")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status int32
			values, err := p.Run("protected", func(p *abitest.Plugin, L abi.State) int32 {
				errfunc := int32(0)
				if tt.handler != "" {
					p.Call("lua_getglobal", h(L), u32(p.CString(tt.handler)))
					errfunc = abitest.AsI32(p.Call("lua_gettop", h(L)))
				}
				p.Call("lua_getglobal", h(L), u32(p.CString("boom")))
				status = abitest.AsI32(p.Call("lua_pcall", h(L), i32(0), i32(0), i32(errfunc)))
				return 1
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, []lua.LValue{tt.value}, values)
		})
	}
}

func TestGC(t *testing.T) {
	_, p := newPlugin(t)

	var running, stopped, pause, unknown int32
	_, err := p.Run("gc", func(p *abitest.Plugin, L abi.State) int32 {
		gc := func(what, data int32) int32 {
			return abitest.AsI32(p.Call("lua_gc", h(L), i32(what), i32(data)))
		}
		running = gc(abi.GCIsRunning, 0)
		gc(abi.GCStop, 0)
		stopped = gc(abi.GCIsRunning, 0)
		gc(abi.GCRestart, 0)
		gc(abi.GCCollect, 0)
		pause = gc(abi.GCSetPause, 100)
		unknown = gc(42, 0)
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), running)
	assert.Zero(t, stopped)
	assert.Equal(t, int32(200), pause)
	assert.Equal(t, int32(-1), unknown)
}

func TestMemoryCategories(t *testing.T) {
	_, p := newPlugin(t)

	var afterStrings, inCat, total int64
	_, err := p.Run("memcat", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_setmemcat", h(L), i32(3))
		data := []byte("0123456789")
		buf, str := p.Bytes(data), p.CString("abc")
		for range 100 {
			p.Call("lua_pushlstring", h(L), u32(buf), u32(uint32(len(data))))
			p.Call("lua_pushstring", h(L), u32(str))
			p.Call("lua_settop", h(L), i32(0))
		}
		p.Call("lua_gc", h(L), i32(abi.GCCollect), i32(0))
		afterStrings = abitest.AsI64(p.Call("lua_totalbytes", h(L), i32(3)))

		p.Call("lua_newuserdata", h(L), u32(16))
		inCat = abitest.AsI64(p.Call("lua_totalbytes", h(L), i32(3)))
		total = abitest.AsI64(p.Call("lua_totalbytes", h(L), i32(-1)))
		return 0
	})
	require.NoError(t, err)
	assert.Zero(t, afterStrings, "strings are not accounted")
	assert.Equal(t, int64(16), inCat)
	assert.GreaterOrEqual(t, total, inCat)

	_, err = p.Run("memcat", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("lua_setmemcat", h(L), i32(300))
		return 0
	})
	re := runtimeError(t, err)
	assert.Equal(t, "lua_setmemcat: memory category 300 out of range", re.Message)
}

func TestUserdata(t *testing.T) {
	_, p := newPlugin(t)

	var (
		ptr, got, checked uint32
		tag, numTag       int32
		length            int32
		created, again    uint64
		zeroed            []byte
	)
	_, err := p.Run("ud", func(p *abitest.Plugin, L abi.State) int32 {
		ptr = uint32(p.Call("lua_newuserdatatagged", h(L), u32(16), i32(7)))
		zeroed = p.ReadBytes(ptr, 16)
		tag = abitest.AsI32(p.Call("lua_userdatatag", h(L), i32(-1)))
		length = abitest.AsI32(p.Call("lua_objlen", h(L), i32(-1)))
		got = uint32(p.Call("lua_touserdata", h(L), i32(-1)))

		created = p.Call("luaL_newmetatable", h(L), u32(p.CString("Point")))
		p.Call("lua_setmetatable", h(L), i32(-2))
		checked = uint32(p.Call("luaL_checkudata", h(L), i32(1), u32(p.CString("Point"))))
		again = p.Call("luaL_newmetatable", h(L), u32(p.CString("Point")))
		p.Call("lua_pop", h(L), i32(1))

		p.Call("lua_pushnumber", h(L), f64(1))
		numTag = abitest.AsI32(p.Call("lua_userdatatag", h(L), i32(-1)))
		return 0
	})
	require.NoError(t, err)
	assert.NotZero(t, ptr)
	assert.Equal(t, make([]byte, 16), zeroed)
	assert.Equal(t, int32(7), tag)
	assert.Equal(t, int32(16), length)
	assert.Equal(t, ptr, got)
	assert.Equal(t, uint64(1), created)
	assert.Equal(t, ptr, checked)
	assert.Zero(t, again)
	assert.Equal(t, int32(-1), numTag)
}

func TestUserdata_CheckWrongType(t *testing.T) {
	_, p := newPlugin(t)

	_, err := p.Run("ud", func(p *abitest.Plugin, L abi.State) int32 {
		p.Call("luaL_checkudata", h(L), i32(1), u32(p.CString("Point")))
		return 0
	}, lua.LNumber(3))
	re := runtimeError(t, err)
	assert.Equal(t, "bad argument #1 to 'ud' (Point expected, got number)", re.Message)
}

func TestVersionFields(t *testing.T) {
	_, p := newPlugin(t)

	assert.Equal(t, uint64(abi.Version), p.Call("seal_abi_version"))
	assert.Equal(t, uint64(abi.API().Len()), p.Call("seal_abi_fields"))
}
