package abi

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// seal_error_wrap(L, msg, len) pushes a structured error built by the error
// module and returns 1. The plugin raises it with lua_error.
func opErrorWrap(c *Call, stack []uint64) {
	t := c.state(stack[0])
	msg, err := NewMessage(c.bytes(u32(stack[1]), u32(stack[2])))
	if err != nil {
		c.Fail(err)
	}
	c.push(t, c.env.Wrap(t.L, msg, "runtime", 2))
	retI32(stack, 1)
}

// seal_wrap_function(L, idx) replaces the function at idx with one that
// reports failures in the structured form.
func opWrapFunction(c *Call, stack []uint64) {
	t := c.state(stack[0])
	pos := c.slot(t, stack[1])
	fn := t.L.Get(pos)
	if fn.Type() != lua.LTFunction {
		c.contract("function expected at index %d, got %s", pos, typeNameOf(fn))
	}
	t.L.Replace(pos, c.env.WrapFunction(t.L, fn))
}

// seal_log(L, level, msg, len) emits a record at the slog level given.
func opLog(c *Call, stack []uint64) {
	c.state(stack[0])
	level := slog.Level(i32v(stack[1]))
	msg := string(c.bytes(u32(stack[2]), u32(stack[3])))
	logger := c.env.cfg.logger
	if !logger.Enabled(c.ctx, level) {
		return
	}
	plugin := "?"
	if c.guest != nil {
		plugin = c.guest.Name()
	}
	logger.Log(c.ctx, level, msg, "plugin", plugin, "function", c.env.FunctionName())
}
