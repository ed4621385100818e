// Package demo is a small statically linked library used in examples and
// tests of the entry-point and error protocols.
package demo

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
)

// Name is the module name scripts require.
const Name = "demo"

// Registrar is satisfied by *host.Host.
type Registrar interface {
	Env() *abi.Env
	RegisterNative(name string, entry abi.NativeEntry) error
}

// Register makes the library available to require under Name.
func Register(r Registrar) error {
	return r.RegisterNative(Name, Entry(r.Env()))
}

// Entry returns the library's entry point. The table it returns has:
//
//	greet([name])  "hello, <name>", name defaults to "world"
//	double(n)      n * 2
//	echo(...)      its arguments
//	apply(f, ...)  calls f with the remaining arguments from native code
//	fail([msg])    raises a structured error
func Entry(env *abi.Env) abi.NativeEntry {
	return func(L *lua.LState) int {
		L.Push(env.SetFuncs(L, L.NewTable(), map[string]lua.LGFunction{
			"greet": func(L *lua.LState) int {
				L.Push(lua.LString("hello, " + env.OptString(L, 1, "world")))
				return 1
			},
			"double": func(L *lua.LState) int {
				L.Push(lua.LNumber(env.CheckNumber(L, 1) * 2))
				return 1
			},
			"echo": func(L *lua.LState) int {
				return L.GetTop()
			},
			"apply": func(L *lua.LState) int {
				env.CheckFunction(L, 1)
				L.Call(L.GetTop()-1, lua.MultRet)
				return L.GetTop()
			},
			"fail": func(L *lua.LState) int {
				env.Raise(L, env.OptString(L, 1, "demo failure"), "runtime")
				return 0
			},
		}))
		return 1
	}
}
