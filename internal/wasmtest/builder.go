package wasmtest

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02

	// DataBase is where String places the first string.
	DataBase = 1024
)

type funcType struct {
	params, results []api.ValueType
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []api.ValueType
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	init   []byte
}

// Builder assembles one module.
type Builder struct {
	types    []funcType
	imports  []importFunc
	funcs    []function
	exports  []export
	data     []segment
	table    []uint32
	globals  []int32
	memPages uint32
	dataNext uint32
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{dataNext: DataBase}
}

// Type returns the index of the function type, adding it when new.
func (b *Builder) Type(params, results []api.ValueType) uint32 {
	for i, t := range b.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i) //nolint:gosec // small test modules
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1) //nolint:gosec // small test modules
}

// Import adds a function import and returns its function index. All imports
// must be added before the first Func.
func (b *Builder) Import(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: import after function definition")
	}
	b.imports = append(b.imports, importFunc{module: module, name: name, typeIdx: b.Type(params, results)})
	return uint32(len(b.imports) - 1) //nolint:gosec // small test modules
}

// ImportABI imports the table field name from abi.ModuleName with its
// declared signature.
func (b *Builder) ImportABI(name string) uint32 {
	f, ok := abi.API().Lookup(name)
	if !ok {
		panic(fmt.Sprintf("wasmtest: no ABI field %q", name))
	}
	return b.Import(abi.ModuleName, name, f.Params, f.Results)
}

// Func defines a function and returns its index in the function space.
func (b *Builder) Func(params, results, locals []api.ValueType, body *Code) uint32 {
	code := append(slices.Clone(body.Bytes()), 0x0b)
	b.funcs = append(b.funcs, function{typeIdx: b.Type(params, results), locals: locals, body: code})
	return uint32(len(b.imports) + len(b.funcs) - 1) //nolint:gosec // small test modules
}

// Export exports function fn under name.
func (b *Builder) Export(name string, fn uint32) {
	b.exports = append(b.exports, export{name: name, kind: kindFunc, idx: fn})
}

// Memory declares memory 0 with the given number of pages and exports it as
// "memory".
func (b *Builder) Memory(pages uint32) {
	b.memPages = pages
	b.exports = append(b.exports, export{name: "memory", kind: kindMemory})
}

// Data places init at offset in memory 0.
func (b *Builder) Data(offset uint32, init []byte) {
	b.data = append(b.data, segment{offset: offset, init: init})
}

// String places s, NUL-terminated, in the data area and returns its address.
func (b *Builder) String(s string) uint32 {
	return b.Bytes0(append([]byte(s), 0))
}

// Bytes0 places raw bytes in the data area and returns their address.
func (b *Builder) Bytes0(v []byte) uint32 {
	ptr := b.dataNext
	b.Data(ptr, v)
	b.dataNext += uint32(len(v)) + 8 - uint32(len(v))%8 //nolint:gosec // small test modules
	return ptr
}

// DataEnd returns the first address past the data placed by String.
func (b *Builder) DataEnd() uint32 {
	return b.dataNext
}

// Table appends functions to table 0 and returns the slot of the first.
func (b *Builder) Table(fns ...uint32) uint32 {
	slot := uint32(len(b.table)) //nolint:gosec // small test modules
	b.table = append(b.table, fns...)
	return slot
}

// Global declares a mutable i32 global and returns its index.
func (b *Builder) Global(init int32) uint32 {
	b.globals = append(b.globals, init)
	return uint32(len(b.globals) - 1) //nolint:gosec // small test modules
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	if len(b.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.types))) //nolint:gosec // small test modules
		for _, t := range b.types {
			sec.WriteByte(0x60)
			writeValTypes(&sec, t.params)
			writeValTypes(&sec, t.results)
		}
		writeSection(&out, sectionType, sec.Bytes())
	}

	if len(b.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.imports))) //nolint:gosec // small test modules
		for _, imp := range b.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, imp.typeIdx)
		}
		writeSection(&out, sectionImport, sec.Bytes())
	}

	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.funcs))) //nolint:gosec // small test modules
		for _, f := range b.funcs {
			writeU32(&sec, f.typeIdx)
		}
		writeSection(&out, sectionFunction, sec.Bytes())
	}

	if len(b.table) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x70) // funcref
		sec.WriteByte(0x00)
		writeU32(&sec, uint32(len(b.table))) //nolint:gosec // small test modules
		writeSection(&out, sectionTable, sec.Bytes())
	}

	if b.memPages > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x00)
		writeU32(&sec, b.memPages)
		writeSection(&out, sectionMemory, sec.Bytes())
	}

	if len(b.globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.globals))) //nolint:gosec // small test modules
		for _, g := range b.globals {
			sec.WriteByte(byte(api.ValueTypeI32))
			sec.WriteByte(0x01) // mutable
			sec.WriteByte(0x41)
			writeS64(&sec, int64(g))
			sec.WriteByte(0x0b)
		}
		writeSection(&out, sectionGlobal, sec.Bytes())
	}

	if len(b.exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.exports))) //nolint:gosec // small test modules
		for _, e := range b.exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeU32(&sec, e.idx)
		}
		writeSection(&out, sectionExport, sec.Bytes())
	}

	if len(b.table) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		writeU32(&sec, 0) // active, table 0
		sec.Write([]byte{0x41, 0x00, 0x0b})
		writeU32(&sec, uint32(len(b.table))) //nolint:gosec // small test modules
		for _, fn := range b.table {
			writeU32(&sec, fn)
		}
		writeSection(&out, sectionElement, sec.Bytes())
	}

	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.funcs))) //nolint:gosec // small test modules
		for _, f := range b.funcs {
			var body bytes.Buffer
			writeU32(&body, uint32(len(f.locals))) //nolint:gosec // small test modules
			for _, l := range f.locals {
				writeU32(&body, 1)
				body.WriteByte(byte(l))
			}
			body.Write(f.body)
			writeU32(&sec, uint32(body.Len())) //nolint:gosec // small test modules
			sec.Write(body.Bytes())
		}
		writeSection(&out, sectionCode, sec.Bytes())
	}

	if len(b.data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(b.data))) //nolint:gosec // small test modules
		for _, d := range b.data {
			writeU32(&sec, 0) // active, memory 0
			sec.WriteByte(0x41)
			writeS64(&sec, int64(d.offset))
			sec.WriteByte(0x0b)
			writeU32(&sec, uint32(len(d.init))) //nolint:gosec // small test modules
			sec.Write(d.init)
		}
		writeSection(&out, sectionData, sec.Bytes())
	}

	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id byte, data []byte) {
	out.WriteByte(id)
	writeU32(out, uint32(len(data))) //nolint:gosec // small test modules
	out.Write(data)
}

func writeValTypes(buf *bytes.Buffer, types []api.ValueType) {
	writeU32(buf, uint32(len(types))) //nolint:gosec // small test modules
	for _, t := range types {
		buf.WriteByte(byte(t))
	}
}
