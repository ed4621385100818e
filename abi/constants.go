package abi

import lua "github.com/yuin/gopher-lua"

// Pseudo indices. These match the values gopher-lua uses internally.
const (
	RegistryIndex = lua.RegistryIndex
	EnvironIndex  = lua.EnvironIndex
	GlobalsIndex  = lua.GlobalsIndex
)

// UpvalueIndex returns the pseudo index of the i-th upvalue of the running
// native function.
func UpvalueIndex(i int) int {
	return GlobalsIndex - i
}

// MultRet asks lua_call / lua_pcall for all results.
const MultRet = -1

// Type tags, numbered as in the Lua 5.1 C API.
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

var typeNames = [...]string{"nil", "boolean", "userdata", "number", "string", "table", "function", "userdata", "thread"}

// TypeName returns the Lua name of a type tag ("no value" for TypeNone).
func TypeName(tp int) string {
	if tp < 0 || tp >= len(typeNames) {
		return "no value"
	}
	return typeNames[tp]
}

// Status codes returned by lua_pcall, lua_resume, luaL_loadbuffer and
// lua_status.
const (
	StatusOK        = 0
	StatusYield     = 1
	StatusErrRun    = 2
	StatusErrSyntax = 3
	StatusErrMem    = 4
	StatusErrErr    = 5
)

// Coroutine states returned by lua_costatus.
const (
	CoRunning   = 0
	CoSuspended = 1
	CoNormal    = 2
	CoFinished  = 3
	CoError     = 4
)

// lua_gc operations.
const (
	GCStop       = 0
	GCRestart    = 1
	GCCollect    = 2
	GCCount      = 3
	GCCountB     = 4
	GCStep       = 5
	GCSetPause   = 6
	GCSetStepMul = 7
	GCIsRunning  = 9
)

// Reference sentinels returned by lua_ref.
const (
	RefNil = -1
	NoRef  = -2
)

const (
	// MinStack is the number of free slots every native call is guaranteed
	// without calling lua_checkstack.
	MinStack = 20

	// DefaultMaxStack bounds lua_checkstack growth.
	DefaultMaxStack = 8000

	// DefaultMaxCString bounds the scan for the terminator of a C string read
	// from plugin memory.
	DefaultMaxCString = 1 << 16

	// DebugRecordSize is the size of the lua_Debug record written by
	// lua_getinfo.
	DebugRecordSize = 28

	// RegRecordSize is the size of one luaL_Reg entry read by luaL_register.
	RegRecordSize = 8
)
