package wasmtest

import (
	"strconv"

	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
)

// Value types, for building signatures in tests.
const (
	I32 = api.ValueTypeI32
	I64 = api.ValueTypeI64
	F64 = api.ValueTypeF64
)

// Sig builds a signature list.
func Sig(types ...api.ValueType) []api.ValueType {
	return types
}

// SampleOptions shapes the module built by Sample.
type SampleOptions struct {
	// Name is the library name; the entry point is luaopen_<Name>.
	Name string

	// Version is written as the seal_abi_version_<n> marker export, if set.
	Version uint32

	// Unbalanced makes the entry point push one value but return 2.
	Unbalanced bool

	// ExtraImport adds an import of a field the table does not have.
	ExtraImport string
}

// FailMessage is the message the sample's fail function raises.
const FailMessage = "sample failure"

// Sample builds a plugin library exporting one library table with:
//
//	double(n)      luaL_checknumber(1) * 2
//	echo(...)      returns its arguments
//	fail()         raises FailMessage through seal_error_wrap and lua_error
//	trap()         executes unreachable
//	apply(f, x)    lua_call(f, x) and returns the result
//	bytes(s)       luaL_checklstring(1) pushed back with lua_pushlstring
//	errmod()       require("seal.error") from plugin code
//	log(msg)       seal_log at info level
func Sample(opts SampleOptions) []byte {
	b := New()

	checknumber := b.ImportABI("luaL_checknumber")
	pushnumber := b.ImportABI("lua_pushnumber")
	gettop := b.ImportABI("lua_gettop")
	errorWrap := b.ImportABI("seal_error_wrap")
	luaError := b.ImportABI("lua_error")
	call := b.ImportABI("lua_call")
	checklstring := b.ImportABI("luaL_checklstring")
	pushlstring := b.ImportABI("lua_pushlstring")
	getglobal := b.ImportABI("lua_getglobal")
	pushstring := b.ImportABI("lua_pushstring")
	createtable := b.ImportABI("lua_createtable")
	pushclosure := b.ImportABI("lua_pushcclosurek")
	setfield := b.ImportABI("lua_setfield")
	pushnil := b.ImportABI("lua_pushnil")
	sealLog := b.ImportABI("seal_log")
	if opts.ExtraImport != "" {
		b.Import(abi.ModuleName, opts.ExtraImport, Sig(I32), Sig(I32))
	}

	b.Memory(2)
	failMsg := b.String(FailMessage)
	requireName := b.String("require")
	errModule := b.String(abi.DefaultErrorModule)
	lenSlot := b.Bytes0(make([]byte, 8))
	heap := b.Global(0)

	alloc := b.Func(Sig(I32), Sig(I32), Sig(I32), NewCode().
		GlobalGet(heap).LocalTee(1).
		LocalGet(0).I32Add().
		I32Const(7).I32Add().I32Const(-8).I32And().
		GlobalSet(heap).
		LocalGet(1))
	b.Export("allocate", alloc)
	b.Export("deallocate", b.Func(Sig(I32, I32), nil, nil, NewCode()))

	native := Sig(I32)
	nativeType := b.Type(native, Sig(I32))
	b.Export("seal_call", b.Func(Sig(I32, I32), Sig(I32), nil, NewCode().
		LocalGet(1).LocalGet(0).CallIndirect(nativeType)))

	type entry struct {
		name string
		fn   uint32
	}
	var lib []entry
	def := func(name string, body *Code) {
		lib = append(lib, entry{name: name, fn: b.Func(native, Sig(I32), nil, body)})
	}

	def("double", NewCode().
		LocalGet(0).
		LocalGet(0).I32Const(1).Call(checknumber).
		F64Const(2).F64Mul().
		Call(pushnumber).
		I32Const(1))
	def("echo", NewCode().LocalGet(0).Call(gettop))
	def("fail", NewCode().
		LocalGet(0).I32Const(int32(failMsg)).I32Const(int32(len(FailMessage))).Call(errorWrap).Drop().
		LocalGet(0).Call(luaError).
		I32Const(0))
	def("trap", NewCode().Unreachable())
	def("apply", NewCode().
		LocalGet(0).I32Const(1).I32Const(1).Call(call).
		I32Const(1))
	def("bytes", NewCode().
		LocalGet(0).
		LocalGet(0).I32Const(1).I32Const(int32(lenSlot)).Call(checklstring).
		I32Const(int32(lenSlot)).I32Load(0).
		Call(pushlstring).
		I32Const(1))
	def("errmod", NewCode().
		LocalGet(0).I32Const(int32(requireName)).Call(getglobal).
		LocalGet(0).I32Const(int32(errModule)).Call(pushstring).
		LocalGet(0).I32Const(1).I32Const(1).Call(call).
		I32Const(1))
	def("log", NewCode().
		LocalGet(0).I32Const(0).
		LocalGet(0).I32Const(1).I32Const(int32(lenSlot)).Call(checklstring).
		I32Const(int32(lenSlot)).I32Load(0).
		Call(sealLog).
		I32Const(0))

	entryCode := NewCode().LocalGet(0).I32Const(0).I32Const(int32(len(lib))).Call(createtable) //nolint:gosec // fixed size
	for _, e := range lib {
		namePtr := int32(b.String(e.name)) //nolint:gosec // data area is small
		slot := int32(b.Table(e.fn))       //nolint:gosec // table is small
		entryCode.
			LocalGet(0).I32Const(slot).I32Const(namePtr).I32Const(0).I32Const(0).Call(pushclosure).
			LocalGet(0).I32Const(-2).I32Const(namePtr).Call(setfield)
	}
	if opts.Unbalanced {
		entryCode.LocalGet(0).Call(pushnil).I32Const(3)
	} else {
		entryCode.I32Const(1)
	}
	b.Export(abi.EntrySymbol(opts.Name), b.Func(native, Sig(I32), nil, entryCode))

	if opts.Version > 0 {
		b.Export(abi.VersionMarkerPrefix+strconv.FormatUint(uint64(opts.Version), 10),
			b.Func(nil, Sig(I32), nil, NewCode().I32Const(int32(opts.Version)))) //nolint:gosec // small versions
	}

	b.globals[heap] = int32((b.DataEnd() + 15) &^ 15) //nolint:gosec // data area is small
	return b.Bytes()
}
