// Package wasmtest assembles small WebAssembly modules for tests, so the
// wazero boundary can be exercised without a compiler toolchain.
//
// Only the subset of the binary format the tests need is supported: function
// types over i32, i64 and f64, function imports, one memory, one funcref
// table filled from index 0, i32 globals, exports and active data segments.
package wasmtest
