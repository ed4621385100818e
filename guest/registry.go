package guest

import (
	"slices"
	"sync"
)

// Function is a Go function callable from scripts. It reads its arguments
// from L and returns how many results it pushed.
type Function func(L State) int

var registry = struct {
	sync.Mutex
	fns   []Function // index 0 is never handed out
	names []string
}{
	fns:   []Function{nil},
	names: []string{""},
}

// Register adds fn to the dispatch table and returns the index the host
// passes back to seal_call. name is used in diagnostics.
func Register(name string, fn Function) uint32 {
	if fn == nil {
		panic("guest: Register with a nil function")
	}
	registry.Lock()
	defer registry.Unlock()
	registry.fns = append(registry.fns, fn)
	registry.names = append(registry.names, name)
	return uint32(len(registry.fns) - 1) //nolint:gosec // bounded by the number of registrations
}

func lookup(idx uint32) (Function, string, bool) {
	registry.Lock()
	defer registry.Unlock()
	if idx == 0 || int(idx) >= len(registry.fns) {
		return nil, "", false
	}
	return registry.fns[idx], registry.names[idx], true
}

// active is the stack of states with a Go function running, innermost last.
var active []State

// Current returns the state of the innermost running function.
func Current() (State, bool) {
	if len(active) == 0 {
		return 0, false
	}
	return active[len(active)-1], true
}

// dispatch runs function idx on L. A Go panic becomes a structured error on
// L; functions raise their own errors through State.
func dispatch(idx uint32, L State) int32 {
	fn, name, ok := lookup(idx)
	if !ok {
		L.Errorf("guest: no function registered at index %d", idx)
	}
	return int32(run(L, name, fn)) //nolint:gosec // result counts are small
}

// enter pushes L onto the active stack and returns the function that pops
// it. When an error unwinds plugin frames the pop never runs; the next
// dispatch on a shallower state trims the stack instead.
func enter(L State) func() {
	if i := slices.Index(active, L); i >= 0 {
		active = active[:i]
	}
	active = append(active, L)
	n := len(active)
	return func() {
		if len(active) >= n {
			active = active[:n-1]
		}
	}
}

func run(L State, name string, fn Function) (n int) {
	leave := enter(L)
	defer leave()
	defer func() {
		if r := recover(); r != nil {
			L.Errorf("%s: panic: %v", name, r)
		}
	}()
	return fn(L)
}

// OpenLibrary builds the library table for an entry point: every function
// of funcs is pushed as a closure named after its key. The table is left on
// the stack and OpenLibrary returns 1, the entry point's result.
func OpenLibrary(L State, funcs map[string]Function) int32 {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	slices.Sort(names)

	L.CreateTable(0, len(names))
	for _, name := range names {
		L.PushFunction(name, funcs[name])
		L.SetField(-2, name)
	}
	return 1
}
