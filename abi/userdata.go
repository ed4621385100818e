package abi

import (
	"runtime"

	lua "github.com/yuin/gopher-lua"
)

// userdata is the Go value behind a full userdata whose block lives in
// plugin memory. The block is returned to the plugin once the VM drops the
// userdata.
type userdata struct {
	guest     Guest
	ptr, size uint32
	tag       int32
}

func (c *Call) newUserdata(t *thread, size uint32, tag int32) uint32 {
	if c.guest == nil {
		c.contract("userdata needs plugin memory")
	}
	alloc := max(size, 1)
	ptr, err := c.guest.Allocate(c.ctx, alloc)
	if err != nil {
		c.Fail(err)
	}
	c.write(ptr, make([]byte, alloc))

	ud := t.L.NewUserData()
	ud.Value = &userdata{guest: c.guest, ptr: ptr, size: size, tag: tag}
	c.push(t, ud)

	c.env.memcat[t.memcat] += int64(alloc)
	env, b := c.env, block{guest: c.guest, ptr: ptr, size: alloc, counted: true, cat: t.memcat}
	runtime.SetFinalizer(ud, func(*lua.LUserData) {
		env.deferFree(b)
	})
	return ptr
}

func opNewUserdataTagged(c *Call, stack []uint64) {
	t := c.state(stack[0])
	tag := i32v(stack[2])
	if tag < 0 {
		c.contract("negative userdata tag %d", tag)
	}
	retU32(stack, c.newUserdata(t, u32(stack[1]), tag))
}

func opUserdataTag(c *Call, stack []uint64) {
	t := c.state(stack[0])
	if ud, ok := c.at(t, stack[1]).(*lua.LUserData); ok {
		if b, ok := ud.Value.(*userdata); ok {
			retI32(stack, b.tag)
			return
		}
	}
	retI32(stack, -1)
}
