// Package uuid is a statically linked library exposing UUID generation and
// parsing to scripts:
//
//	local uuid = require("uuid")
//	local id = uuid.v4()
//	local info = uuid.parse(id)  -- {id = ..., version = 4, variant = "RFC4122"}
package uuid

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
)

// Name is the module name scripts require.
const Name = "uuid"

// Registrar is satisfied by *host.Host.
type Registrar interface {
	Env() *abi.Env
	RegisterNative(name string, entry abi.NativeEntry) error
}

// Register makes the library available to require under Name.
func Register(r Registrar) error {
	return r.RegisterNative(Name, Entry(r.Env()))
}

// Entry returns the library's entry point.
func Entry(env *abi.Env) abi.NativeEntry {
	return func(L *lua.LState) int {
		lib := env.SetFuncs(L, L.NewTable(), map[string]lua.LGFunction{
			"v4":    generate(env, uuid.NewRandom),
			"v7":    generate(env, uuid.NewV7),
			"nil":   func(L *lua.LState) int { L.Push(lua.LString(uuid.Nil.String())); return 1 },
			"parse": parse(env),
			"valid": func(L *lua.LState) int {
				L.Push(lua.LBool(uuid.Validate(env.CheckString(L, 1)) == nil))
				return 1
			},
		})
		L.Push(lib)
		return 1
	}
}

func generate(env *abi.Env, newUUID func() (uuid.UUID, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		id, err := newUUID()
		if err != nil {
			env.RaiseError(L, fmt.Errorf("generate uuid: %w", err))
		}
		L.Push(lua.LString(id.String()))
		return 1
	}
}

// parse returns a table describing the UUID, or nil and a message when s is
// not one.
func parse(env *abi.Env) lua.LGFunction {
	return func(L *lua.LState) int {
		id, err := uuid.Parse(env.CheckString(L, 1))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		tb := L.CreateTable(0, 3)
		tb.RawSetString("id", lua.LString(id.String()))
		tb.RawSetString("version", lua.LNumber(id.Version()))
		tb.RawSetString("variant", lua.LString(id.Variant().String()))
		switch id.Version() {
		case 1, 6, 7:
			sec, nsec := id.Time().UnixTime()
			tb.RawSetString("time", lua.LNumber(float64(sec)+float64(nsec)/1e9))
		}
		L.Push(tb)
		return 1
	}
}
