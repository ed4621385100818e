//go:build wasip1

package guest

import "log/slog"

func init() {
	slog.SetDefault(slog.New(NewHandler()))
}

//go:wasmexport seal_call
func sealCall(fn, L uint32) int32 {
	return dispatch(fn, State(L))
}

// Declares the table version this package was written against.
//
//go:wasmexport seal_abi_version_1
func sealABIVersion() int32 {
	return Version
}
