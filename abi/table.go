package abi

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// Version is the ABI table version. It changes only when a field is removed,
// reordered or retyped; appending fields keeps the version.
const Version = 1

// ModuleName is the import module plugins bind the table under.
const ModuleName = "seal_abi_v1"

// VersionMarkerPrefix prefixes the optional export a plugin uses to declare
// the table version it was built against, e.g. "seal_abi_version_1".
const VersionMarkerPrefix = "seal_abi_version_"

// State is an opaque handle to one VM execution context (a Lua thread).
// Handles are issued by the host and never freed by plugins. 0 is the null
// handle.
type State uint32

// Func implements one table field. Arguments arrive in stack encoded as in
// wazero's api.GoModuleFunc; results are written back from stack[0].
type Func func(c *Call, stack []uint64)

// Field is one entry of the table: a name and a fixed signature.
type Field struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Fn      Func
}

// Signature renders the field's type as "(i32, i32) -> (f64)".
func (f Field) Signature() string {
	return formatTypes(f.Params) + " -> " + formatTypes(f.Results)
}

func formatTypes(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Table is the process-wide ABI table. Its address is obtained through
// API() and it is never mutated.
type Table struct {
	version uint32
	fields  []Field
	index   map[string]int
}

// Version returns the version the table implements.
func (t *Table) Version() uint32 {
	return t.version
}

// Len returns the number of fields.
func (t *Table) Len() int {
	return len(t.fields)
}

// Field returns a copy of the i-th field.
func (t *Table) Field(i int) Field {
	f := t.fields[i]
	f.Params = slices.Clone(f.Params)
	f.Results = slices.Clone(f.Results)
	return f
}

// Lookup returns a copy of the field with the given name.
func (t *Table) Lookup(name string) (Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return Field{}, false
	}
	return t.Field(i), true
}

// Names returns field names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.fields))
	for i := range t.fields {
		names[i] = t.fields[i].Name
	}
	return names
}

var table Table

func init() {
	table = buildTable()
}

// API returns the address of the static ABI table. Every call returns the
// same pointer.
func API() *Table {
	return &table
}

func buildTable() Table {
	t := Table{
		version: Version,
		fields:  fields(),
	}
	t.index = make(map[string]int, len(t.fields))
	for i, f := range t.fields {
		if _, dup := t.index[f.Name]; dup {
			panic(fmt.Sprintf("abi: duplicate field %q", f.Name))
		}
		t.index[f.Name] = i
	}
	return t
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

func sig(types ...api.ValueType) []api.ValueType {
	return types
}
