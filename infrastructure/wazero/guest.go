package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
)

// Exports a plugin module provides to the host.
const (
	ExportAllocate   = "allocate"
	ExportDeallocate = "deallocate"
	ExportTrampoline = "seal_call"
	ExportInitialize = "_initialize"
)

// Guest adapts an instantiated plugin module to abi.Guest.
//
// Every call looks its export up again: api.Function values keep per-call
// engine state, and plugin code calls back into the host, which may re-enter
// the same export before the outer call returns.
type Guest struct {
	mod  api.Module
	name string
}

var _ abi.Guest = (*Guest)(nil)

// NewGuest wraps mod. The plugin is named after the module.
func NewGuest(mod api.Module) *Guest {
	name := mod.Name()
	if name == "" {
		name = "?"
	}
	return &Guest{mod: mod, name: name}
}

// Name implements abi.Guest.
func (g *Guest) Name() string {
	return g.name
}

// Module returns the wrapped module.
func (g *Guest) Module() api.Module {
	return g.mod
}

// Memory implements abi.Guest.
func (g *Guest) Memory() abi.Memory {
	m := g.mod.Memory()
	if m == nil {
		return nil
	}
	return m
}

// Allocate implements abi.Guest through the plugin's allocate export.
func (g *Guest) Allocate(ctx context.Context, size uint32) (uint32, error) {
	res, err := g.call(ctx, ExportAllocate, api.EncodeU32(size))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res)
	if ptr == 0 {
		return 0, fmt.Errorf("plugin %s: allocate(%d) returned null", g.name, size)
	}
	return ptr, nil
}

// Free implements abi.Guest through the plugin's deallocate export. A plugin
// without one never gets its memory back.
func (g *Guest) Free(ctx context.Context, ptr, size uint32) error {
	fn := g.mod.ExportedFunction(ExportDeallocate)
	if fn == nil {
		return nil
	}
	if _, err := fn.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size)); err != nil {
		return fmt.Errorf("plugin %s: %s: %w", g.name, ExportDeallocate, err)
	}
	return nil
}

// Invoke implements abi.Guest through the seal_call trampoline.
func (g *Guest) Invoke(ctx context.Context, fn uint32, L abi.State) (int32, error) {
	res, err := g.call(ctx, ExportTrampoline, api.EncodeU32(fn), api.EncodeU32(uint32(L)))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res), nil
}

// CallExport implements abi.Guest.
func (g *Guest) CallExport(ctx context.Context, symbol string, L abi.State) (int32, error) {
	res, err := g.call(ctx, symbol, api.EncodeU32(uint32(L)))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res), nil
}

// Initialize runs the plugin's reactor initializer, if it has one.
func (g *Guest) Initialize(ctx context.Context) error {
	fn := g.mod.ExportedFunction(ExportInitialize)
	if fn == nil {
		return nil
	}
	if _, err := fn.Call(ctx); err != nil {
		return fmt.Errorf("plugin %s: %s: %w", g.name, ExportInitialize, err)
	}
	return nil
}

// Close closes the module.
func (g *Guest) Close(ctx context.Context) error {
	return g.mod.Close(ctx)
}

// call invokes an export that returns exactly one value.
func (g *Guest) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("plugin %s does not export %q", g.name, name)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("plugin %s: %s: %w", g.name, name, err)
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("plugin %s: %s returned %d values, want 1", g.name, name, len(res))
	}
	return res[0], nil
}
