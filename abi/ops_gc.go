package abi

import (
	"runtime"
)

// gcState holds the collector tuning knobs plugins can set. The VM's values
// live in Go's heap, so the knobs are recorded and reported, and collection
// requests go to the Go runtime.
type gcState struct {
	running bool
	pause   int
	stepmul int
}

func newGCState() gcState {
	return gcState{running: true, pause: 200, stepmul: 200}
}

// lua_gc(L, what, data)
func opGC(c *Call, stack []uint64) {
	c.state(stack[0])
	what, data := int(i32v(stack[1])), int(i32v(stack[2]))
	gc := &c.env.gc

	var ret int
	switch what {
	case GCStop:
		gc.running = false
	case GCRestart:
		gc.running = true
	case GCCollect, GCStep:
		if gc.running {
			runtime.GC()
		}
		if what == GCStep {
			ret = 1
		}
	case GCCount:
		ret = int(heapBytes() >> 10)
	case GCCountB:
		ret = int(heapBytes() & 0x3ff)
	case GCSetPause:
		ret, gc.pause = gc.pause, data
	case GCSetStepMul:
		ret, gc.stepmul = gc.stepmul, data
	case GCIsRunning:
		if gc.running {
			ret = 1
		}
	default:
		ret = -1
	}
	retI32(stack, int32(ret)) //nolint:gosec // KiB counts fit in 32 bits
}

func heapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// lua_setmemcat(L, category) selects the category that values created
// through the table on L are accounted to.
func opSetMemCat(c *Call, stack []uint64) {
	t := c.state(stack[0])
	cat := i32v(stack[1])
	if cat < 0 || cat > 255 {
		c.contract("memory category %d out of range", cat)
	}
	t.memcat = cat
}

// lua_totalbytes(L, category) reports bytes accounted to category, or to all
// categories when category is negative.
func opTotalBytes(c *Call, stack []uint64) {
	c.state(stack[0])
	cat := i32v(stack[1])
	if cat >= 0 {
		retI64(stack, c.env.memcat[cat])
		return
	}
	var total int64
	for _, n := range c.env.memcat {
		total += n
	}
	retI64(stack, total)
}
