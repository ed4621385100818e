package guest

import (
	"fmt"
	"log/slog"
)

// State is a state handle passed in by the host.
type State uint32

// Value types reported by Type.
const (
	TypeNone          = -1
	TypeNil           = 0
	TypeBoolean       = 1
	TypeLightUserdata = 2
	TypeNumber        = 3
	TypeString        = 4
	TypeTable         = 5
	TypeFunction      = 6
	TypeUserdata      = 7
	TypeThread        = 8
)

// MultRet asks Call and PCall for every result.
const MultRet = -1

// Status codes returned by PCall.
const (
	StatusOK     = 0
	StatusErrRun = 2
	StatusErrMem = 4
	StatusErrErr = 5
)

func (L State) h() uint32 { return uint32(L) }

// GetTop returns the number of values on the stack.
func (L State) GetTop() int { return int(lua_gettop(L.h())) }

// SetTop sets the stack top, filling with nil or dropping values.
func (L State) SetTop(idx int) { lua_settop(L.h(), int32(idx)) } //nolint:gosec // stack indices are small

// Pop removes n values.
func (L State) Pop(n int) { L.SetTop(-n - 1) }

func (L State) PushValue(idx int) { lua_pushvalue(L.h(), int32(idx)) } //nolint:gosec // stack indices are small

func (L State) Type(idx int) int { return int(lua_type(L.h(), int32(idx))) } //nolint:gosec // stack indices are small

// IsNoneOrNil reports whether idx holds nil or is past the top.
func (L State) IsNoneOrNil(idx int) bool {
	t := L.Type(idx)
	return t == TypeNone || t == TypeNil
}

func (L State) ToNumber(idx int) float64 { return lua_tonumber(L.h(), int32(idx)) } //nolint:gosec // stack indices are small

func (L State) ToBoolean(idx int) bool { return lua_toboolean(L.h(), int32(idx)) != 0 } //nolint:gosec // stack indices are small

// ToString converts the value at idx in place, as the host does, and
// returns a copy. ok is false for values that are neither strings nor
// numbers.
func (L State) ToString(idx int) (s string, ok bool) {
	ptr := lua_tolstring(L.h(), int32(idx), lenAddr()) //nolint:gosec // stack indices are small
	if ptr == 0 {
		return "", false
	}
	return string(readBytes(ptr, loadLen())), true
}

// Len returns the length of the string or table at idx.
func (L State) Len(idx int) int { return int(lua_objlen(L.h(), int32(idx))) } //nolint:gosec // stack indices are small

func (L State) PushNil() { lua_pushnil(L.h()) }

func (L State) PushNumber(n float64) { lua_pushnumber(L.h(), n) }

// PushInteger pushes n, saturated to 32 bits.
func (L State) PushInteger(n int) { lua_pushinteger(L.h(), saturate(n)) }

func (L State) PushBoolean(b bool) {
	var v int32
	if b {
		v = 1
	}
	lua_pushboolean(L.h(), v)
}

// PushString pushes s byte for byte; embedded zeros are kept.
func (L State) PushString(s string) {
	lua_pushlstring(L.h(), stringAddr(s), uint32(len(s))) //nolint:gosec // strings are below 4GiB in wasm32
	keep(s)
}

// PushBytes is PushString for a byte slice.
func (L State) PushBytes(b []byte) {
	lua_pushlstring(L.h(), bytesAddr(b), uint32(len(b))) //nolint:gosec // slices are below 4GiB in wasm32
	keep(b)
}

// PushFunction registers fn and pushes it as a native function called name.
func (L State) PushFunction(name string, fn Function) {
	idx := Register(name, fn)
	n := cstring(name)
	lua_pushcclosurek(L.h(), idx, bytesAddr(n), 0, 0)
	keep(n)
}

func (L State) CreateTable(narr, nrec int) {
	lua_createtable(L.h(), saturate(narr), saturate(nrec))
}

// GetField pushes t[k] for the table t at idx.
func (L State) GetField(idx int, k string) {
	b := cstring(k)
	lua_getfield(L.h(), int32(idx), bytesAddr(b)) //nolint:gosec // stack indices are small
	keep(b)
}

// SetField pops a value and stores it as t[k] for the table t at idx.
func (L State) SetField(idx int, k string) {
	b := cstring(k)
	lua_setfield(L.h(), int32(idx), bytesAddr(b)) //nolint:gosec // stack indices are small
	keep(b)
}

func (L State) RawGetI(idx, n int) { lua_rawgeti(L.h(), int32(idx), saturate(n)) } //nolint:gosec // stack indices are small

func (L State) RawSetI(idx, n int) { lua_rawseti(L.h(), int32(idx), saturate(n)) } //nolint:gosec // stack indices are small

func (L State) GetGlobal(name string) {
	b := cstring(name)
	lua_getglobal(L.h(), bytesAddr(b))
	keep(b)
}

func (L State) SetGlobal(name string) {
	b := cstring(name)
	lua_setglobal(L.h(), bytesAddr(b))
	keep(b)
}

// Call calls the function below nargs arguments. Errors propagate through
// the plugin without returning.
func (L State) Call(nargs, nresults int) {
	lua_call(L.h(), int32(nargs), int32(nresults)) //nolint:gosec // small counts
}

// PCall is Call in protected mode. On failure the error value is on top
// and the status is not StatusOK.
func (L State) PCall(nargs, nresults int) int {
	return int(lua_pcall(L.h(), int32(nargs), int32(nresults), 0)) //nolint:gosec // small counts
}

// Require pushes the value require(name) returns.
func (L State) Require(name string) {
	L.GetGlobal("require")
	L.PushString(name)
	L.Call(1, 1)
}

// Error raises the value on top of the stack.
func (L State) Error() {
	lua_error(L.h())
}

// Errorf raises a structured error carrying the formatted message and the
// calling script's location. Zero bytes in the message are replaced.
func (L State) Errorf(format string, args ...any) {
	msg := []byte(fmt.Sprintf(format, args...))
	for i, c := range msg {
		if c == 0 {
			msg[i] = '?'
		}
	}
	seal_error_wrap(L.h(), bytesAddr(msg), uint32(len(msg))) //nolint:gosec // messages are small
	keep(msg)
	L.Error()
}

// ArgError raises "bad argument #narg to '<fn>' (extra)".
func (L State) ArgError(narg int, extra string) {
	b := cstring(extra)
	luaL_argerror(L.h(), int32(narg), bytesAddr(b)) //nolint:gosec // argument numbers are small
	keep(b)
}

func (L State) CheckType(narg, t int) { luaL_checktype(L.h(), int32(narg), int32(t)) } //nolint:gosec // small values

func (L State) CheckAny(narg int) { luaL_checkany(L.h(), int32(narg)) } //nolint:gosec // argument numbers are small

func (L State) CheckNumber(narg int) float64 { return luaL_checknumber(L.h(), int32(narg)) } //nolint:gosec // argument numbers are small

func (L State) OptNumber(narg int, def float64) float64 {
	return luaL_optnumber(L.h(), int32(narg), def) //nolint:gosec // argument numbers are small
}

func (L State) CheckInteger(narg int) int { return int(luaL_checkinteger(L.h(), int32(narg))) } //nolint:gosec // argument numbers are small

// CheckString returns a copy of string argument narg.
func (L State) CheckString(narg int) string {
	ptr := luaL_checklstring(L.h(), int32(narg), lenAddr()) //nolint:gosec // argument numbers are small
	return string(readBytes(ptr, loadLen()))
}

// OptString returns string argument narg, or def when it is absent or nil.
func (L State) OptString(narg int, def string) string {
	if L.IsNoneOrNil(narg) {
		return def
	}
	return L.CheckString(narg)
}

// Log emits a record through the host logger.
func (L State) Log(level slog.Level, msg string) {
	seal_log(L.h(), int32(level), stringAddr(msg), uint32(len(msg))) //nolint:gosec // small values
	keep(msg)
}

func saturate(n int) int32 {
	switch {
	case n > 1<<31-1:
		return 1<<31 - 1
	case n < -1<<31:
		return -1 << 31
	}
	return int32(n)
}
