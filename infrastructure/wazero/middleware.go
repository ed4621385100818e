package wazero

import (
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
)

// Middleware wraps a table field to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next abi.Func) abi.Func

// chain applies mw so that mw[0] is the outermost layer.
func chain(fn abi.Func, mw []Middleware) abi.Func {
	wrapped := fn
	for i := len(mw) - 1; i >= 0; i-- {
		wrapped = mw[i](wrapped)
	}
	return wrapped
}

// PanicRecoveryMiddleware returns a middleware that turns Go panics in host
// code into structured VM errors raised on the calling thread. Errors the VM
// raised itself keep unwinding unchanged.
func PanicRecoveryMiddleware() Middleware {
	return func(next abi.Func) abi.Func {
		return func(c *abi.Call, stack []uint64) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if apiErr, ok := r.(*lua.ApiError); ok {
					panic(apiErr)
				}
				c.Fail(fmt.Errorf("%s: panic: %v", c.Field(), r))
			}()
			next(c, stack)
		}
	}
}

// LoggingMiddleware returns a middleware that logs every field invocation at
// debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next abi.Func) abi.Func {
		return func(c *abi.Call, stack []uint64) {
			ctx := c.Context()
			if !logger.Enabled(ctx, slog.LevelDebug) {
				next(c, stack)
				return
			}
			plugin := "?"
			if g := c.Guest(); g != nil {
				plugin = g.Name()
			}
			logger.DebugContext(ctx, "wazero: abi call",
				"function", c.Field(), "plugin", plugin, "depth", c.Env().Depth())
			next(c, stack)
		}
	}
}
