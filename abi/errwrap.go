package abi

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	derrors "github.com/seal-runtime/seal-abi/domain/errors"
)

// DefaultErrorModule is the module name the error constructor is preloaded
// under.
const DefaultErrorModule = "seal.error"

//go:embed errors.lua
var errorModuleSource string

// NewMessage converts raw bytes into an error message. A message containing a
// zero byte cannot be represented as a C string on the plugin side and is
// rejected instead of truncated.
func NewMessage(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return "", &derrors.ConversionError{
			Op:  "message",
			Err: fmt.Errorf("%w at offset %d", derrors.ErrEmbeddedNul, i),
		}
	}
	return string(b), nil
}

func (e *Env) installErrorModule(L *lua.LState) {
	name := e.cfg.errorModule
	L.PreloadModule(name, func(L *lua.LState) int {
		fn, err := L.LoadString(errorModuleSource)
		if err != nil {
			L.RaiseError("%s: %v", name, err)
		}
		L.Push(fn)
		L.Call(0, 1)
		return 1
	})
}

// ErrorModule resolves the error module through require, the same way a
// script would.
func (e *Env) ErrorModule(L *lua.LState) (lua.LValue, error) {
	top := L.GetTop()
	defer L.SetTop(top)

	L.Push(L.GetGlobal("require"))
	L.Push(lua.LString(e.cfg.errorModule))
	if err := L.PCall(1, 1, nil); err != nil {
		return lua.LNil, fmt.Errorf("require %q: %w", e.cfg.errorModule, err)
	}
	return L.Get(-1), nil
}

// Wrap builds a structured error value by calling the error module's wrap
// function. level counts as for error(): 1 is the running function, 2 its
// caller. When the module is unavailable the plain message is returned.
func (e *Env) Wrap(L *lua.LState, message, kind string, level int) lua.LValue {
	mod, err := e.ErrorModule(L)
	if err != nil {
		e.cfg.logger.Debug("abi: error module unavailable", "error", err)
		return lua.LString(message)
	}
	tb, ok := mod.(*lua.LTable)
	if !ok {
		return lua.LString(message)
	}
	wrap := tb.RawGetString("wrap")
	if wrap.Type() != lua.LTFunction {
		return lua.LString(message)
	}

	top := L.GetTop()
	defer L.SetTop(top)
	L.Push(wrap)
	L.Push(lua.LString(message))
	L.Push(lua.LString(kind))
	L.Push(lua.LNumber(level))
	if err := L.PCall(3, 1, nil); err != nil {
		return lua.LString(message)
	}
	return L.Get(-1)
}

// Raise wraps message and raises it on L. The location recorded is the one
// of the Lua code that called the running function. It does not return.
func (e *Env) Raise(L *lua.LState, message, kind string) {
	L.Error(e.Wrap(L, message, kind, 2), 0)
}

// RaiseError raises err on L through the error protocol.
func (e *Env) RaiseError(L *lua.LState, err error) {
	kind := "runtime"
	if d := derrors.ToErrorDetail(err); d != nil && d.Type != "internal" {
		kind = d.Type
	}
	e.Raise(L, err.Error(), kind)
}

// IsWrapped reports whether v already has the structured error shape.
func IsWrapped(v lua.LValue) bool {
	tb, ok := v.(*lua.LTable)
	if !ok {
		return false
	}
	if _, ok := tb.RawGetString("message").(lua.LString); !ok {
		return false
	}
	if _, ok := tb.RawGetString("kind").(lua.LString); !ok {
		return false
	}
	mt, ok := tb.Metatable.(*lua.LTable)
	return ok && mt.RawGetString("__tostring").Type() == lua.LTFunction
}

// ErrorMessage renders an error value the way tostring would for structured
// errors and strings.
func ErrorMessage(v lua.LValue) string {
	if !IsWrapped(v) {
		return v.String()
	}
	tb := v.(*lua.LTable)
	msg := tb.RawGetString("message").String()
	src, line := tb.RawGetString("source"), tb.RawGetString("line")
	if s, ok := src.(lua.LString); ok {
		if n, ok := line.(lua.LNumber); ok {
			return fmt.Sprintf("%s:%d: %s", s, int(n), msg)
		}
	}
	return msg
}

// Error converts an error returned by a protected call into a
// *derrors.RuntimeError carrying the structured fields when present.
func Error(err error) error {
	var apiErr *lua.ApiError
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	re := &derrors.RuntimeError{Trace: apiErr.StackTrace, Kind: "runtime"}
	if apiErr.Object == nil {
		re.Message = apiErr.Error()
		return re
	}
	if apiErr.Type == lua.ApiErrorSyntax {
		re.Kind = "syntax"
	}
	if !IsWrapped(apiErr.Object) {
		re.Message = apiErr.Object.String()
		return re
	}
	tb := apiErr.Object.(*lua.LTable)
	re.Message = tb.RawGetString("message").String()
	re.Kind = tb.RawGetString("kind").String()
	if s, ok := tb.RawGetString("source").(lua.LString); ok {
		re.Source = string(s)
	}
	if n, ok := tb.RawGetString("line").(lua.LNumber); ok {
		re.Line = int(n)
	}
	return re
}
