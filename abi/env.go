package abi

import (
	"context"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// EnvOption configures an Env.
type EnvOption func(*envConfig)

type envConfig struct {
	logger       *slog.Logger
	errorModule  string
	stateOptions lua.Options
	maxStack     int
	maxCString   uint32
}

func defaultEnvConfig() envConfig {
	return envConfig{
		logger:      slog.Default(),
		errorModule: DefaultErrorModule,
		maxStack:    DefaultMaxStack,
		maxCString:  DefaultMaxCString,
	}
}

// WithErrorModule sets the module name the structured error constructor is
// required from (default "seal.error").
func WithErrorModule(name string) EnvOption {
	return func(c *envConfig) {
		c.errorModule = name
	}
}

// WithMaxStack bounds how far lua_checkstack may grow a stack.
func WithMaxStack(n int) EnvOption {
	return func(c *envConfig) {
		c.maxStack = n
	}
}

// WithMaxCString bounds the terminator scan of C strings read from plugin
// memory.
func WithMaxCString(n uint32) EnvOption {
	return func(c *envConfig) {
		c.maxCString = n
	}
}

// WithLogger sets the logger used for plugin log records and boundary
// diagnostics.
func WithLogger(l *slog.Logger) EnvOption {
	return func(c *envConfig) {
		c.logger = l
	}
}

// WithStateOptions sets the options used for states created through
// luaL_newstate.
func WithStateOptions(o lua.Options) EnvOption {
	return func(c *envConfig) {
		c.stateOptions = o
	}
}

// Env binds the ABI table to one VM. It owns the handle table, the stack of
// active native frames and the bookkeeping for references, memory categories
// and scratch memory handed to plugins.
//
// An Env is driven by one goroutine at a time. The handle table is guarded so
// that finalizers and inspection from other goroutines stay safe.
type Env struct {
	cfg  envConfig
	main *lua.LState
	ctx  context.Context

	mu      sync.Mutex
	handles map[State]*thread
	byState map[*lua.LState]*thread
	next    State
	pending []block // userdata memory released by finalizers

	frames []*frame
	loose  []block // scratch allocated outside any frame
	refs   map[*lua.Global]*refTable
	gc     gcState
	memcat map[int32]int64
}

// thread is the host record behind one State handle.
type thread struct {
	id     State
	L      *lua.LState
	owned  bool // created by luaL_newstate, may be closed by the plugin
	limit  int  // highest stack index pushes may reach
	yield  int  // results requested by lua_yield, -1 if none
	failed bool // last resume ended in an error
	memcat int32
}

// frame is one active call into plugin code.
type frame struct {
	name    string
	guest   Guest
	t       *thread
	saved   int
	scratch []block
}

type block struct {
	guest     Guest
	ptr, size uint32
	counted   bool // included in the memory category totals
	cat       int32
}

// NewEnv binds a new Env to L, which becomes the main state. The structured
// error module is preloaded into L.
func NewEnv(L *lua.LState, opts ...EnvOption) *Env {
	cfg := defaultEnvConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Env{
		cfg:     cfg,
		main:    L,
		ctx:     context.Background(),
		handles: make(map[State]*thread),
		byState: make(map[*lua.LState]*thread),
		refs:    make(map[*lua.Global]*refTable),
		memcat:  make(map[int32]int64),
		gc:      newGCState(),
	}
	e.installErrorModule(L)
	e.bind(L)
	return e
}

// Main returns the main state.
func (e *Env) Main() *lua.LState {
	return e.main
}

// Logger returns the logger configured for the Env.
func (e *Env) Logger() *slog.Logger {
	return e.cfg.logger
}

// Context returns the context of the host call currently driving the VM.
func (e *Env) Context() context.Context {
	return e.ctx
}

// WithContext makes ctx the context passed to plugin code until the returned
// function is called.
func (e *Env) WithContext(ctx context.Context) (restore func()) {
	prev := e.ctx
	if ctx != nil {
		e.ctx = ctx
	}
	return func() {
		e.ctx = prev
	}
}

// Handle returns the handle for L, issuing one if L has not been seen yet.
func (e *Env) Handle(L *lua.LState) State {
	return e.bind(L).id
}

// Lookup resolves a handle.
func (e *Env) Lookup(s State) (*lua.LState, bool) {
	t, ok := e.thread(s)
	if !ok {
		return nil, false
	}
	return t.L, true
}

// Depth returns the number of native frames currently active.
func (e *Env) Depth() int {
	return len(e.frames)
}

// Close closes every state created through luaL_newstate that plugins did
// not close themselves. The main state is left to its owner.
func (e *Env) Close() {
	e.mu.Lock()
	var owned []*lua.LState
	for _, t := range e.handles {
		if t.owned {
			owned = append(owned, t.L)
		}
	}
	e.mu.Unlock()

	for _, L := range owned {
		e.forget(L.G)
		L.Close()
	}
}

func (e *Env) bind(L *lua.LState) *thread {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.byState[L]; ok {
		return t
	}
	e.next++
	t := &thread{
		id:    e.next,
		L:     L,
		limit: L.GetTop() + MinStack,
		yield: -1,
	}
	e.handles[t.id] = t
	e.byState[L] = t
	return t
}

func (e *Env) thread(s State) (*thread, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.handles[s]
	return t, ok
}

// rebind points an existing handle at a different state.
func (e *Env) rebind(t *thread, L *lua.LState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byState, t.L)
	t.L = L
	t.limit = L.GetTop() + MinStack
	t.yield = -1
	e.byState[L] = t
}

// forget drops every handle whose state belongs to g.
func (e *Env) forget(g *lua.Global) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.handles {
		if t.L.G == g {
			delete(e.handles, id)
			delete(e.byState, t.L)
		}
	}
	delete(e.refs, g)
}

func (e *Env) pushFrame(t *thread, g Guest, name string) *frame {
	f := &frame{
		name:  name,
		guest: g,
		t:     t,
		saved: t.limit,
	}
	t.limit = t.L.GetTop() + MinStack
	e.frames = append(e.frames, f)
	return f
}

// popFrame unwinds the frame stack down to and including f. Frames above f
// are only present when a raise skipped their own cleanup.
func (e *Env) popFrame(f *frame) {
	for len(e.frames) > 0 {
		top := e.frames[len(e.frames)-1]
		e.frames = e.frames[:len(e.frames)-1]
		top.t.limit = top.saved
		e.release(top.scratch)
		if top == f {
			break
		}
	}
	if len(e.frames) == 0 {
		e.release(e.loose)
		e.loose = nil
		e.mu.Lock()
		pending := e.pending
		e.pending = nil
		e.mu.Unlock()
		e.release(pending)
		e.sweep()
	}
}

// sweep drops the handles of finished coroutines. It runs once no native
// function is active, so no handle in use goes away.
func (e *Env) sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.handles {
		if t.L.Dead && !t.owned && t.L != e.main {
			delete(e.handles, id)
			delete(e.byState, t.L)
		}
	}
}

func (e *Env) current() *frame {
	if len(e.frames) == 0 {
		return nil
	}
	return e.frames[len(e.frames)-1]
}

// frameOf returns the innermost active frame running on t.
func (e *Env) frameOf(t *thread) *frame {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if e.frames[i].t == t {
			return e.frames[i]
		}
	}
	return nil
}

// FunctionName returns the debug name of the innermost native function, or
// "?" when no native function is running.
func (e *Env) FunctionName() string {
	if f := e.current(); f != nil && f.name != "" {
		return f.name
	}
	return "?"
}

func (e *Env) track(b block) {
	if f := e.current(); f != nil {
		f.scratch = append(f.scratch, b)
		return
	}
	e.loose = append(e.loose, b)
}

// deferFree queues memory released from a goroutine other than the one
// driving the VM. The queue drains when the outermost frame pops.
func (e *Env) deferFree(b block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = append(e.pending, b)
}

func (e *Env) release(blocks []block) {
	for _, b := range blocks {
		if b.counted {
			e.memcat[b.cat] -= int64(b.size)
		}
		if err := b.guest.Free(e.ctx, b.ptr, b.size); err != nil {
			e.cfg.logger.DebugContext(e.ctx, "abi: failed to free plugin memory",
				"plugin", b.guest.Name(), "ptr", b.ptr, "size", b.size, "error", err)
		}
	}
}
