// Package wazero instantiates the ABI table as a wazero host module and
// adapts instantiated plugin modules to abi.Guest.
//
// The host module exports every field of abi.API() in table order, each with
// the field's fixed value types. A plugin imports the fields it uses from
// the module (default abi.ModuleName) and calls them with state handles.
//
// # Basic Usage
//
//	env := abi.NewEnv(L)
//	rt := wazero.NewRuntime(ctx)
//
//	adapter, err := wazeroadapter.RegisterWithRuntime(ctx, rt, env,
//	    wazeroadapter.WithMiddleware(
//	        wazeroadapter.PanicRecoveryMiddleware(),
//	        wazeroadapter.LoggingMiddleware(logger),
//	    ),
//	)
//	if err != nil {
//	    return err
//	}
//
//	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("uuid"))
//	...
//	values, err := env.Open(ctx, adapter.Guest(mod), "uuid")
//
// # Plugin exports
//
// Besides its entry points a plugin exports allocate(size) -> ptr and
// deallocate(ptr, size) for the scratch memory the host hands back, and
// seal_call(fn, L) -> n, the trampoline through which the host calls the
// functions the plugin registered by index.
package wazero
