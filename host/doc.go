// Package host embeds a Lua VM together with the plugin boundary.
//
// A Host owns one gopher-lua state, one wazero runtime with WASI preview1,
// the abi.Env that resolves state handles for plugins and the host module
// that exposes the ABI table. Plugin libraries are loaded from WebAssembly
// binaries with LoadLibrary or linked into the binary with RegisterNative;
// both become modules scripts can require.
//
//	h, err := host.New(ctx, host.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	defer h.Close(ctx)
//
//	if err := h.LoadLibraryFile(ctx, "uuid", "uuid.wasm"); err != nil {
//		return err
//	}
//	return h.DoString(ctx, `print(require("uuid").v4())`)
//
// A Host is driven by one goroutine at a time; its methods serialise callers.
// Libraries stay instantiated until Close because functions they registered
// may be referenced by scripts at any point.
package host
