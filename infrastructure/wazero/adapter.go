package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
)

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives adapter diagnostics (default: slog.Default()).
	Logger *slog.Logger

	// ModuleName is the host module name (default: abi.ModuleName).
	ModuleName string

	// Middleware wraps every field, first registered outermost.
	Middleware []Middleware
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: abi.ModuleName).
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMiddleware adds middleware applied to every field.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) AdapterOption {
	return func(c *AdapterConfig) {
		c.Middleware = append(c.Middleware, mw...)
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName: abi.ModuleName,
		Logger:     slog.Default(),
	}
}

// Adapter is the ABI table instantiated in one wazero runtime and bound to
// one abi.Env.
type Adapter struct {
	env    *abi.Env
	cfg    AdapterConfig
	module api.Module

	mu     sync.Mutex
	guests map[api.Module]*Guest
}

// RegisterWithRuntime instantiates the ABI table as a host module of
// runtime. Every field of abi.API() is exported in table order under its
// name, with the field's parameter and result types, and runs against env.
//
// Example:
//
//	adapter, err := wazero.RegisterWithRuntime(ctx, rt, env,
//	    wazero.WithMiddleware(wazero.PanicRecoveryMiddleware()),
//	)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, env *abi.Env, opts ...AdapterOption) (*Adapter, error) {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Adapter{
		env:    env,
		cfg:    cfg,
		guests: make(map[api.Module]*Guest),
	}

	table := abi.API()
	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for i := range table.Len() {
		field := table.Field(i)
		name := field.Name // capture for closure
		fn := chain(field.Fn, cfg.Middleware)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				fn(env.NewCall(ctx, a.Guest(mod), name), stack)
			}), field.Params, field.Results).
			WithName(name).
			Export(name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate host module %q: %w", cfg.ModuleName, err)
	}
	a.module = mod
	cfg.Logger.DebugContext(ctx, "wazero: abi host module registered",
		"module", cfg.ModuleName, "version", table.Version(), "fields", table.Len())
	return a, nil
}

// Env returns the Env the table runs against.
func (a *Adapter) Env() *abi.Env {
	return a.env
}

// Module returns the instantiated host module.
func (a *Adapter) Module() api.Module {
	return a.module
}

// ModuleName returns the name plugins import the table from.
func (a *Adapter) ModuleName() string {
	return a.cfg.ModuleName
}

// Guest returns the abi.Guest for an instantiated plugin module. The same
// module always yields the same Guest.
func (a *Adapter) Guest(mod api.Module) *Guest {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, ok := a.guests[mod]
	if !ok {
		g = NewGuest(mod)
		a.guests[mod] = g
	}
	return g
}

// Forget drops the Guest of a closed plugin module.
func (a *Adapter) Forget(mod api.Module) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.guests, mod)
}

// Close closes the host module.
func (a *Adapter) Close(ctx context.Context) error {
	if a.module == nil {
		return nil
	}
	return a.module.Close(ctx)
}
