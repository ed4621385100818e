// Package abi is the binary contract between the host's Lua VM and
// independently compiled plugins.
//
// The contract is one immutable, order-significant table of functions
// (Table), each with a fixed WebAssembly core signature built only from i32,
// i64 and f64. A plugin compiled by any toolchain imports the table's fields
// from the host module named ModuleName and calls them with an opaque State
// handle; the host resolves the handle, validates every argument and performs
// the operation on the VM.
//
// # Calling convention
//
// Values live on the per-handle Lua stack. Positive indices count from the
// base of the running function, negative ones from the top, and the pseudo
// indices RegistryIndex, EnvironIndex, GlobalsIndex and UpvalueIndex(n)
// address the registry, the function environment, the globals table and
// upvalues. Strings passed into the host are (ptr, len) pairs or
// NUL-terminated C strings in plugin memory. Strings handed back to a plugin
// are copied into a scratch arena in plugin memory that is freed when the
// native call that requested them returns.
//
// # Entry point
//
// A plugin exports luaopen_<name>(L) -> n. The host calls it in protected
// mode and requires that exactly n values were added to the stack.
//
// # Errors
//
// Failures are never unwound through plugin code as Go panics. Every failure
// detected at the boundary (bad argument, bad index, embedded NUL, trap
// inside the plugin) is turned into a structured error value by calling the
// wrap function of the error module through require(), and raised inside the
// VM's own protected-call machinery.
//
// # Versioning
//
// Fields are append-only. Removing, reordering or retyping a field requires
// a new Version and a new ModuleName.
package abi
