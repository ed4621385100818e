package abi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	derrors "github.com/seal-runtime/seal-abi/domain/errors"
)

// NativeEntry is the entry point of a plugin linked into the host binary. It
// follows the protocol of a plugin's luaopen_<name> export: push results,
// return their count.
type NativeEntry func(L *lua.LState) int

const entryPrefix = "luaopen_"

// EntrySymbol returns the entry point symbol for a library name. Dots in
// nested module names become underscores.
func EntrySymbol(name string) string {
	return entryPrefix + strings.ReplaceAll(name, ".", "_")
}

type guestCall func(ctx context.Context, s State) (int32, error)

// GuestFunction returns a VM function that calls the plugin function fn of g.
// name is the debug name reported by checked operations.
func (e *Env) GuestFunction(L *lua.LState, g Guest, fn uint32, name string, upvalues ...lua.LValue) *lua.LFunction {
	return L.NewClosure(func(L *lua.LState) int {
		return e.enter(L, g, name, func(ctx context.Context, s State) (int32, error) {
			return g.Invoke(ctx, fn, s)
		})
	}, upvalues...)
}

// enter runs plugin code inside a native frame on L and applies the result
// protocol.
func (e *Env) enter(L *lua.LState, g Guest, name string, call guestCall) int {
	t := e.bind(L)
	f := e.pushFrame(t, g, name)
	defer e.popFrame(f)

	n, err := call(e.ctx, t.id)
	if err != nil {
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			// Raised by the VM below the plugin; keep unwinding.
			panic(apiErr)
		}
		e.Raise(L, fmt.Sprintf("%s: %s", describe(g, name), firstLine(err.Error())), "runtime")
	}
	if t.yield >= 0 {
		return e.yield(L, t)
	}
	if top := L.GetTop(); n < 0 || int(n) > top {
		e.RaiseError(L, &derrors.ContractError{
			Op:     describe(g, name),
			Reason: fmt.Sprintf("returned %d results with %d values on the stack", n, top),
		})
	}
	return int(n)
}

func (e *Env) yield(L *lua.LState, t *thread) int {
	n := t.yield
	t.yield = -1
	top := L.GetTop()
	if n > top {
		e.RaiseError(L, &derrors.ContractError{
			Op:     "lua_yield",
			Reason: fmt.Sprintf("yields %d values with %d on the stack", n, top),
		})
	}
	values := make([]lua.LValue, n)
	for i := range values {
		values[i] = L.Get(top - n + 1 + i)
	}
	return L.Yield(values...)
}

// Loader returns a package.preload loader that opens library name from g.
func (e *Env) Loader(g Guest, name string) lua.LGFunction {
	symbol := EntrySymbol(name)
	return func(L *lua.LState) int {
		return e.balanced(L, symbol, func(L *lua.LState) int {
			return e.enter(L, g, symbol, func(ctx context.Context, s State) (int32, error) {
				return g.CallExport(ctx, symbol, s)
			})
		})
	}
}

// NativeLoader returns a package.preload loader for a statically linked
// library.
func (e *Env) NativeLoader(name string, entry NativeEntry) lua.LGFunction {
	symbol := EntrySymbol(name)
	return func(L *lua.LState) int {
		return e.balanced(L, symbol, func(L *lua.LState) int {
			f := e.pushFrame(e.bind(L), nil, symbol)
			defer e.popFrame(f)
			return entry(L)
		})
	}
}

// balanced runs an entry point and enforces that it pushed exactly the
// number of values it returned.
func (e *Env) balanced(L *lua.LState, symbol string, entry lua.LGFunction) int {
	before := L.GetTop()
	n := entry(L)
	after := L.GetTop()
	if n < 0 || after != before+n {
		e.RaiseError(L, &derrors.ContractError{
			Op:     symbol,
			Reason: fmt.Sprintf("returned %d but changed the stack by %d", n, after-before),
		})
	}
	return n
}

// Open runs the entry point of library name in g on the main state, in
// protected mode, and returns the values it produced.
func (e *Env) Open(ctx context.Context, g Guest, name string) ([]lua.LValue, error) {
	return e.open(ctx, name, e.Loader(g, name))
}

// OpenNative is Open for a statically linked library.
func (e *Env) OpenNative(ctx context.Context, name string, entry NativeEntry) ([]lua.LValue, error) {
	return e.open(ctx, name, e.NativeLoader(name, entry))
}

func (e *Env) open(ctx context.Context, name string, loader lua.LGFunction) ([]lua.LValue, error) {
	restore := e.WithContext(ctx)
	defer restore()

	L := e.main
	base := L.GetTop()
	defer L.SetTop(base)

	L.Push(L.NewFunction(loader))
	L.Push(lua.LString(name))
	if err := L.PCall(1, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("open %s: %w", name, Error(err))
	}
	values := make([]lua.LValue, 0, L.GetTop()-base)
	for i := base + 1; i <= L.GetTop(); i++ {
		values = append(values, L.Get(i))
	}
	return values, nil
}

// WrapFunction returns a function that calls fn with its arguments and
// returns its results. Failures are re-raised in the structured error form
// unless they already have it.
func (e *Env) WrapFunction(L *lua.LState, fn lua.LValue) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		L.Insert(fn, 1)
		if err := L.PCall(L.GetTop()-1, lua.MultRet, nil); err != nil {
			var apiErr *lua.ApiError
			if errors.As(err, &apiErr) && apiErr.Object != nil {
				if IsWrapped(apiErr.Object) {
					L.Error(apiErr.Object, 0)
				}
				L.Error(e.Wrap(L, apiErr.Object.String(), "runtime", 0), 0)
			}
			L.Error(e.Wrap(L, err.Error(), "runtime", 0), 0)
		}
		return L.GetTop()
	})
}

// NewFunction returns a VM function that runs the Go function fn as a
// native function called name. Checked helpers report name in argument
// errors and every failure reaches scripts in the structured form.
func (e *Env) NewFunction(L *lua.LState, name string, fn lua.LGFunction) *lua.LFunction {
	inner := L.NewFunction(func(L *lua.LState) int {
		f := e.pushFrame(e.bind(L), nil, name)
		defer e.popFrame(f)
		return fn(L)
	})
	return e.WrapFunction(L, inner)
}

// SetFuncs sets each function of funcs on tb through NewFunction.
func (e *Env) SetFuncs(L *lua.LState, tb *lua.LTable, funcs map[string]lua.LGFunction) *lua.LTable {
	for name, fn := range funcs {
		tb.RawSetString(name, e.NewFunction(L, name, fn))
	}
	return tb
}

func describe(g Guest, name string) string {
	switch {
	case g == nil && name == "":
		return "?"
	case g == nil:
		return name
	case name == "":
		return g.Name()
	default:
		return g.Name() + "." + name
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
