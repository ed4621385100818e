package abi

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	derrors "github.com/seal-runtime/seal-abi/domain/errors"
)

// The checked helpers validate arguments of the running native function and
// raise structured argument errors naming it. They serve both statically
// linked plugins and the luaL_* table fields.

func argAt(L *lua.LState, n int) lua.LValue {
	if n > L.GetTop() {
		return nil
	}
	return L.Get(n)
}

func typeNameOf(v lua.LValue) string {
	return TypeName(TypeOf(v))
}

// ArgError raises "bad argument #n to '<fn>' (extra)".
func (e *Env) ArgError(L *lua.LState, n int, extra string) {
	e.RaiseError(L, &derrors.ArgumentError{Func: e.FunctionName(), Arg: n, Extra: extra})
}

// TypeError raises "bad argument #n to '<fn>' (<expected> expected, got <actual>)".
func (e *Env) TypeError(L *lua.LState, n int, expected string) {
	e.RaiseError(L, &derrors.ArgumentError{
		Func:     e.FunctionName(),
		Arg:      n,
		Expected: expected,
		Got:      typeNameOf(argAt(L, n)),
	})
}

// CheckAny requires argument n to be present.
func (e *Env) CheckAny(L *lua.LState, n int) lua.LValue {
	v := argAt(L, n)
	if v == nil {
		e.ArgError(L, n, "value expected")
	}
	return v
}

// CheckType requires argument n to have type tag tp.
func (e *Env) CheckType(L *lua.LState, n, tp int) lua.LValue {
	v := argAt(L, n)
	if TypeOf(v) != tp {
		e.TypeError(L, n, TypeName(tp))
	}
	return v
}

// CheckNumber requires argument n to be a number or a numeric string.
func (e *Env) CheckNumber(L *lua.LState, n int) float64 {
	f, ok := ToNumber(argAt(L, n))
	if !ok {
		e.TypeError(L, n, "number")
	}
	return f
}

// OptNumber is CheckNumber with a default for an absent or nil argument.
func (e *Env) OptNumber(L *lua.LState, n int, def float64) float64 {
	if isNoneOrNil(argAt(L, n)) {
		return def
	}
	return e.CheckNumber(L, n)
}

// CheckInteger is CheckNumber truncated toward zero.
func (e *Env) CheckInteger(L *lua.LState, n int) int {
	return int(toInt32(e.CheckNumber(L, n)))
}

// OptInteger is CheckInteger with a default.
func (e *Env) OptInteger(L *lua.LState, n, def int) int {
	if isNoneOrNil(argAt(L, n)) {
		return def
	}
	return e.CheckInteger(L, n)
}

// CheckBool requires argument n to be a boolean.
func (e *Env) CheckBool(L *lua.LState, n int) bool {
	b, ok := argAt(L, n).(lua.LBool)
	if !ok {
		e.TypeError(L, n, "boolean")
	}
	return bool(b)
}

// OptBool is CheckBool with a default.
func (e *Env) OptBool(L *lua.LState, n int, def bool) bool {
	if isNoneOrNil(argAt(L, n)) {
		return def
	}
	return e.CheckBool(L, n)
}

// CheckString requires argument n to be a string or a number, which is
// converted in place.
func (e *Env) CheckString(L *lua.LState, n int) string {
	v := argAt(L, n)
	s, ok := ToString(v)
	if !ok {
		e.TypeError(L, n, "string")
	}
	if _, isNum := v.(lua.LNumber); isNum {
		L.Replace(n, lua.LString(s))
	}
	return s
}

// OptString is CheckString with a default.
func (e *Env) OptString(L *lua.LState, n int, def string) string {
	if isNoneOrNil(argAt(L, n)) {
		return def
	}
	return e.CheckString(L, n)
}

// CheckTable requires argument n to be a table.
func (e *Env) CheckTable(L *lua.LState, n int) *lua.LTable {
	tb, ok := argAt(L, n).(*lua.LTable)
	if !ok {
		e.TypeError(L, n, "table")
	}
	return tb
}

// CheckFunction requires argument n to be a function.
func (e *Env) CheckFunction(L *lua.LState, n int) *lua.LFunction {
	fn, ok := argAt(L, n).(*lua.LFunction)
	if !ok {
		e.TypeError(L, n, "function")
	}
	return fn
}

// CheckOption requires argument n (or def when absent and def is not empty)
// to be one of options and returns its position.
func (e *Env) CheckOption(L *lua.LState, n int, def string, options []string) int {
	var name string
	if def != "" && isNoneOrNil(argAt(L, n)) {
		name = def
	} else {
		name = e.CheckString(L, n)
	}
	for i, opt := range options {
		if opt == name {
			return i
		}
	}
	e.ArgError(L, n, fmt.Sprintf("invalid option '%s'", name))
	return -1
}

// CheckUserData requires argument n to be a userdata whose metatable is the
// one registered under tname.
func (e *Env) CheckUserData(L *lua.LState, n int, tname string) *lua.LUserData {
	ud, ok := argAt(L, n).(*lua.LUserData)
	if ok {
		if mt := L.GetTypeMetatable(tname); mt != lua.LNil && ud.Metatable == mt {
			return ud
		}
	}
	e.TypeError(L, n, tname)
	return nil
}

// CheckStack raises "stack overflow" when the stack of the running native
// function cannot grow by size slots.
func (e *Env) CheckStack(L *lua.LState, size int, msg string) {
	if e.growStack(e.bind(L), size) {
		return
	}
	detail := "stack overflow"
	if msg != "" {
		detail += " (" + msg + ")"
	}
	e.RaiseError(L, &derrors.ContractError{Op: e.FunctionName(), Reason: detail})
}

// growStack raises the capacity ceiling of t so that size more values fit.
// It reports false when that would exceed the configured maximum or the
// room left in the thread's data stack.
func (e *Env) growStack(t *thread, size int) bool {
	if size < 0 {
		return false
	}
	need := t.L.GetTop() + size
	if need > e.cfg.maxStack || size > registryRoom(t.L) {
		return false
	}
	if need > t.limit {
		t.limit = need
	}
	return true
}

// RegistryCapacity returns how many values a thread created with opts can
// hold. gopher-lua keeps one data stack per thread, shared by all frames.
func RegistryCapacity(opts lua.Options) int {
	size := opts.RegistrySize
	if size < 128 {
		size = lua.RegistrySize
	}
	return max(size, opts.RegistryMaxSize)
}

// registryRoom returns how many more values fit on the data stack of L.
func registryRoom(L *lua.LState) int {
	return RegistryCapacity(L.Options) - registryTop(L)
}

// registryTop reads the absolute top of the data stack, which gopher-lua
// does not export. The frame-relative top is the fallback.
func registryTop(L *lua.LState) int {
	reg := reflect.ValueOf(L).Elem().FieldByName("reg")
	if reg.Kind() == reflect.Pointer && !reg.IsNil() {
		if top := reg.Elem().FieldByName("top"); top.Kind() == reflect.Int {
			return int(top.Int())
		}
	}
	return L.GetTop()
}

func isNoneOrNil(v lua.LValue) bool {
	return v == nil || v == lua.LNil
}
