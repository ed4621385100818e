package wasmtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Code is a function body under construction. The final end opcode is added
// by Builder.Func.
type Code struct {
	buf bytes.Buffer
}

// NewCode starts an empty body.
func NewCode() *Code {
	return &Code{}
}

// Op appends raw opcodes.
func (c *Code) Op(b ...byte) *Code {
	c.buf.Write(b)
	return c
}

func (c *Code) LocalGet(i uint32) *Code  { return c.idx(0x20, i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.idx(0x21, i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.idx(0x22, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.idx(0x23, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.idx(0x24, i) }
func (c *Code) Call(fn uint32) *Code     { return c.idx(0x10, fn) }

// CallIndirect calls through table 0 with the function type typeIdx.
func (c *Code) CallIndirect(typeIdx uint32) *Code {
	c.idx(0x11, typeIdx)
	c.buf.WriteByte(0x00)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(0x41)
	writeS64(&c.buf, int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf.WriteByte(0x42)
	writeS64(&c.buf, v)
	return c
}

func (c *Code) F64Const(v float64) *Code {
	c.buf.WriteByte(0x44)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	c.buf.Write(b[:])
	return c
}

// I32Load loads from the address on the stack plus offset.
func (c *Code) I32Load(offset uint32) *Code { return c.mem(0x28, 2, offset) }

// I32Store stores to the address below the value plus offset.
func (c *Code) I32Store(offset uint32) *Code { return c.mem(0x36, 2, offset) }

// I32Load8U loads one byte, zero extended.
func (c *Code) I32Load8U(offset uint32) *Code { return c.mem(0x2d, 0, offset) }

// I32Store8 stores the low byte.
func (c *Code) I32Store8(offset uint32) *Code { return c.mem(0x3a, 0, offset) }

// If opens a block without results; close it with End.
func (c *Code) If() *Code          { return c.Op(0x04, 0x40) }
func (c *Code) Else() *Code        { return c.Op(0x05) }
func (c *Code) End() *Code         { return c.Op(0x0b) }
func (c *Code) Return() *Code      { return c.Op(0x0f) }
func (c *Code) Drop() *Code        { return c.Op(0x1a) }
func (c *Code) Unreachable() *Code { return c.Op(0x00) }
func (c *Code) I32Eqz() *Code      { return c.Op(0x45) }
func (c *Code) I32Add() *Code      { return c.Op(0x6a) }
func (c *Code) I32Sub() *Code      { return c.Op(0x6b) }
func (c *Code) I32And() *Code      { return c.Op(0x71) }
func (c *Code) F64Add() *Code      { return c.Op(0xa0) }
func (c *Code) F64Mul() *Code      { return c.Op(0xa2) }

// Bytes returns the body without the closing end opcode.
func (c *Code) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *Code) idx(op byte, i uint32) *Code {
	c.buf.WriteByte(op)
	writeU32(&c.buf, i)
	return c
}

func (c *Code) mem(op byte, align, offset uint32) *Code {
	c.buf.WriteByte(op)
	writeU32(&c.buf, align)
	writeU32(&c.buf, offset)
	return c
}
