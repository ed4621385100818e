// Package guest is the plugin side of the native boundary for Go programs
// compiled to WebAssembly with GOOS=wasip1 GOARCH=wasm -buildmode=c-shared.
//
// Importing the package exports everything the host expects from a plugin
// besides its entry point: the allocate/deallocate pair, the seal_call
// trampoline and the seal_abi_version_1 marker. A library adds its entry
// point and registers Go functions:
//
//	//go:wasmexport luaopen_hello
//	func open(L uint32) int32 {
//		return guest.OpenLibrary(guest.State(L), map[string]guest.Function{
//			"greet": func(L guest.State) int {
//				L.PushString("hello, " + L.CheckString(1))
//				return 1
//			},
//		})
//	}
//
// State methods map one to one onto table fields. Raising an error (Error,
// Errorf, the Check* helpers) unwinds plugin frames without running deferred
// calls, the way longjmp does in C; release resources before raising.
//
// Outside wasip1 builds the package compiles, so plugin code can share files
// with host-side tests, but every State method panics.
package guest
