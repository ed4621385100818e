package abitest

import "encoding/binary"

// Memory is a flat little-endian linear memory.
type Memory struct {
	buf []byte
}

// NewMemory returns a zeroed memory of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{buf: make([]byte, size)}
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.buf)) //nolint:gosec // test memories are small
}

func (m *Memory) Read(offset, n uint32) ([]byte, bool) {
	if !m.inRange(offset, n) {
		return nil, false
	}
	return m.buf[offset : offset+n], true
}

func (m *Memory) Write(offset uint32, v []byte) bool {
	if !m.inRange(offset, uint32(len(v))) { //nolint:gosec // test memories are small
		return false
	}
	copy(m.buf[offset:], v)
	return true
}

func (m *Memory) ReadUint32Le(offset uint32) (uint32, bool) {
	b, ok := m.Read(offset, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (m *Memory) WriteUint32Le(offset, v uint32) bool {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(offset, b[:])
}

func (m *Memory) inRange(offset, n uint32) bool {
	return uint64(offset)+uint64(n) <= uint64(len(m.buf))
}
