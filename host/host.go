package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
	sealwazero "github.com/seal-runtime/seal-abi/infrastructure/wazero"
)

var (
	// ErrClosed is returned by every method of a closed Host.
	ErrClosed = errors.New("host is closed")

	// ErrUnknownLibrary is returned by Open for a name nothing was loaded under.
	ErrUnknownLibrary = errors.New("unknown library")

	// ErrDuplicateLibrary is returned when a name is loaded twice.
	ErrDuplicateLibrary = errors.New("library already loaded")

	// ErrNoVersionMarker is returned for a plugin without a
	// seal_abi_version_<n> export when markers are required.
	ErrNoVersionMarker = errors.New("plugin does not declare an ABI version")
)

// Library describes a loaded library.
type Library struct {
	Name    string   `json:"name"`
	Native  bool     `json:"native,omitempty"`
	Path    string   `json:"path,omitempty"`
	Version uint32   `json:"version,omitempty"` // declared by the plugin's marker, 0 if none
	Imports []string `json:"imports,omitempty"`
}

type library struct {
	info     Library
	compiled wazero.CompiledModule
	guest    *sealwazero.Guest
}

// Host is a Lua VM with the plugin boundary attached.
type Host struct {
	cfg     Config
	logger  *slog.Logger
	L       *lua.LState
	env     *abi.Env
	rt      wazero.Runtime
	cache   wazero.CompilationCache
	adapter *sealwazero.Adapter

	mu     sync.Mutex
	libs   map[string]*library
	closed bool
}

// New creates a Host and loads the libraries listed in the configuration.
func New(ctx context.Context, opts ...Option) (*Host, error) {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	h := &Host{
		cfg:    o.cfg,
		logger: o.logger,
		libs:   make(map[string]*library),
	}

	h.L = lua.NewState(o.cfg.StateOptions())
	if o.cfg.MinimalLibs {
		openMinimal(h.L)
	}

	// States plugins create get the full library set.
	pluginStates := o.cfg.StateOptions()
	pluginStates.SkipOpenLibs = false
	h.env = abi.NewEnv(h.L,
		abi.WithLogger(o.logger),
		abi.WithErrorModule(o.cfg.ErrorModule),
		abi.WithMaxStack(o.cfg.MaxStack),
		abi.WithMaxCString(o.cfg.MaxCString),
		abi.WithStateOptions(pluginStates),
	)

	rc := o.runtime
	if rc == nil {
		rc = wazero.NewRuntimeConfig()
	}
	rc = rc.WithCloseOnContextDone(o.cfg.CloseOnContextDone)
	if o.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(o.cfg.MemoryLimitPages)
	}
	if o.cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(o.cfg.CacheDir)
		if err != nil {
			h.closeLua()
			return nil, fmt.Errorf("compilation cache: %w", err)
		}
		h.cache = cache
		rc = rc.WithCompilationCache(cache)
	}

	h.rt = wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, h.rt); err != nil {
		_ = h.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}

	mw := append([]sealwazero.Middleware{sealwazero.PanicRecoveryMiddleware()}, o.middleware...)
	if o.cfg.Level() <= slog.LevelDebug {
		mw = append(mw, sealwazero.LoggingMiddleware(o.logger))
	}
	adapter, err := sealwazero.RegisterWithRuntime(ctx, h.rt, h.env,
		sealwazero.WithLogger(o.logger),
		sealwazero.WithMiddleware(mw...),
	)
	if err != nil {
		_ = h.Close(ctx)
		return nil, err
	}
	h.adapter = adapter

	names := make([]string, 0, len(o.cfg.Libraries))
	for name := range o.cfg.Libraries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := h.LoadLibraryFile(ctx, name, o.cfg.Libraries[name]); err != nil {
			_ = h.Close(ctx)
			return nil, err
		}
	}
	return h, nil
}

// openMinimal opens the libraries the boundary itself relies on: require,
// the base functions and debug.getinfo.
func openMinimal(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.DebugLibName, lua.OpenDebug},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// Env returns the boundary bound to the main state.
func (h *Host) Env() *abi.Env {
	return h.env
}

// State returns the main state.
func (h *Host) State() *lua.LState {
	return h.L
}

// Config returns the configuration the Host was created with.
func (h *Host) Config() Config {
	return h.cfg
}

// LoadLibraryFile reads a WebAssembly binary and loads it under name.
func (h *Host) LoadLibraryFile(ctx context.Context, name, path string) error {
	wasm, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if err := h.loadLibrary(ctx, name, wasm, path); err != nil {
		return err
	}
	h.logger.InfoContext(ctx, "library loaded", "library", name, "path", filepath.Clean(path))
	return nil
}

// LoadLibrary compiles and instantiates a plugin, checks it against the ABI
// table and makes it available to require under name. The entry point
// luaopen_<name> runs on first require.
func (h *Host) LoadLibrary(ctx context.Context, name string, wasm []byte) error {
	return h.loadLibrary(ctx, name, wasm, "")
}

func (h *Host) loadLibrary(ctx context.Context, name string, wasm []byte, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if _, ok := h.libs[name]; ok {
		return fmt.Errorf("load %s: %w", name, ErrDuplicateLibrary)
	}

	compiled, err := h.rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	compat, err := sealwazero.CheckModule(name, compiled, h.adapter.ModuleName())
	if err == nil && h.cfg.RequireVersionMarker && compat.Declared == 0 {
		err = fmt.Errorf("plugin %s: %w", name, ErrNoVersionMarker)
	}
	if err != nil {
		_ = compiled.Close(ctx)
		return err
	}

	mod, err := h.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions().
		WithStderr(os.Stderr))
	if err != nil {
		_ = compiled.Close(ctx)
		return fmt.Errorf("instantiate %s: %w", name, err)
	}
	guest := h.adapter.Guest(mod)
	if err := guest.Initialize(ctx); err != nil {
		h.adapter.Forget(mod)
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return err
	}

	h.L.PreloadModule(name, h.env.Loader(guest, name))
	h.libs[name] = &library{
		info: Library{
			Name:    name,
			Path:    path,
			Version: compat.Declared,
			Imports: compat.Imports,
		},
		compiled: compiled,
		guest:    guest,
	}
	h.logger.DebugContext(ctx, "plugin instantiated",
		"library", name, "declared", compat.Declared, "imports", len(compat.Imports))
	return nil
}

// RegisterNative makes a statically linked library available to require.
func (h *Host) RegisterNative(name string, entry abi.NativeEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if _, ok := h.libs[name]; ok {
		return fmt.Errorf("register %s: %w", name, ErrDuplicateLibrary)
	}
	h.L.PreloadModule(name, h.env.NativeLoader(name, entry))
	h.libs[name] = &library{info: Library{Name: name, Native: true}}
	return nil
}

// Libraries lists the loaded libraries by name.
func (h *Host) Libraries() []Library {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Library, 0, len(h.libs))
	for _, lib := range h.libs {
		out = append(out, lib.info)
	}
	slices.SortFunc(out, func(a, b Library) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Open requires library name and returns the value its entry point produced.
func (h *Host) Open(ctx context.Context, name string) (lua.LValue, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if _, ok := h.libs[name]; !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrUnknownLibrary)
	}

	var v lua.LValue
	err := h.run(ctx, func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: L.GetGlobal("require"), NRet: 1, Protect: true}, lua.LString(name)); err != nil {
			return fmt.Errorf("open %s: %w", name, abi.Error(err))
		}
		v = L.Get(-1)
		L.Pop(1)
		return nil
	})
	return v, err
}

// DoString runs a chunk on the main state.
func (h *Host) DoString(ctx context.Context, src string) error {
	return h.exec(ctx, func(L *lua.LState) error {
		return L.DoString(src)
	})
}

// DoFile runs a script file on the main state.
func (h *Host) DoFile(ctx context.Context, path string) error {
	return h.exec(ctx, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// Call calls fn in protected mode and returns all of its results.
func (h *Host) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	var out []lua.LValue
	err := h.exec(ctx, func(L *lua.LState) error {
		base := L.GetTop()
		defer L.SetTop(base)

		L.Push(fn)
		for _, a := range args {
			L.Push(a)
		}
		if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}
		for i := base + 1; i <= L.GetTop(); i++ {
			out = append(out, L.Get(i))
		}
		return nil
	})
	return out, err
}

// exec runs fn under the lock and converts VM failures to Go errors.
func (h *Host) exec(ctx context.Context, fn func(L *lua.LState) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	return h.run(ctx, func(L *lua.LState) error {
		return abi.Error(fn(L))
	})
}

// run binds ctx to the VM and to plugin calls for the duration of fn.
func (h *Host) run(ctx context.Context, fn func(L *lua.LState) error) error {
	if ctx != nil && ctx.Done() != nil {
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}
	restore := h.env.WithContext(ctx)
	defer restore()
	return fn(h.L)
}

// Close closes the VM, every plugin and the runtime. It is safe to call more
// than once.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	h.closeLua()
	if h.rt != nil {
		if err := h.rt.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close runtime: %w", err))
		}
	}
	if h.cache != nil {
		if err := h.cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close compilation cache: %w", err))
		}
	}
	h.libs = nil
	return errors.Join(errs...)
}

func (h *Host) closeLua() {
	h.env.Close()
	h.L.Close()
}
