package wazero

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
	derrors "github.com/seal-runtime/seal-abi/domain/errors"
)

const modulePrefix = "seal_abi_v"

// Compatibility describes how a compiled plugin binds to the table.
type Compatibility struct {
	// Declared is the version named by the plugin's marker export, 0 if none.
	Declared uint32

	// Imports lists the table fields the plugin imports.
	Imports []string
}

// CheckModule verifies that compiled can bind against the table exported
// under moduleName. It fails with a *derrors.VersionError when the plugin
// declares a newer table version, imports another major version, or imports
// a field the table does not have or has with another signature.
func CheckModule(name string, compiled wazero.CompiledModule, moduleName string) (*Compatibility, error) {
	table := abi.API()
	compat := &Compatibility{}

	for export := range compiled.ExportedFunctions() {
		rest, ok := strings.CutPrefix(export, abi.VersionMarkerPrefix)
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			continue
		}
		compat.Declared = max(compat.Declared, uint32(v))
	}
	if compat.Declared > table.Version() {
		return nil, &derrors.VersionError{Plugin: name, Want: compat.Declared, Have: table.Version()}
	}

	for _, def := range compiled.ImportedFunctions() {
		mod, field, _ := def.Import()
		if mod != moduleName {
			if v, ok := majorVersion(mod); ok && v != table.Version() {
				return nil, &derrors.VersionError{Plugin: name, Want: v, Have: table.Version()}
			}
			continue
		}
		f, ok := table.Lookup(field)
		if !ok || !slices.Equal(f.Params, def.ParamTypes()) || !slices.Equal(f.Results, def.ResultTypes()) {
			return nil, &derrors.VersionError{Plugin: name, Want: compat.Declared, Have: table.Version(), Missing: field + signature(def)}
		}
		compat.Imports = append(compat.Imports, field)
	}
	return compat, nil
}

func majorVersion(module string) (uint32, bool) {
	rest, ok := strings.CutPrefix(module, modulePrefix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func signature(def api.FunctionDefinition) string {
	f := abi.Field{Params: def.ParamTypes(), Results: def.ResultTypes()}
	return " " + f.Signature()
}
