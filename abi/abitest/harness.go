package abitest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
)

// EntryCase defines one entry-point scenario.
type EntryCase struct {
	Name     string
	Entry    Func
	WantErr  string
	Validate func(t *testing.T, values []lua.LValue)
}

// RunEntryTests opens each case's entry point as library Name through the
// entry protocol and checks the outcome. Every case must leave the main
// stack where it found it and free all scratch memory.
func RunEntryTests(t *testing.T, env *abi.Env, cases []EntryCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			p := New(env, tc.Name)
			p.Export(abi.EntrySymbol(tc.Name), tc.Entry)

			var values []lua.LValue
			var err error
			AssertBalanced(t, env.Main(), func() {
				values, err = env.Open(context.Background(), p, tc.Name)
			})

			if tc.WantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.WantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Zero(t, p.Live(), "scratch memory not freed")
			assert.Zero(t, env.Depth(), "native frames left active")

			if tc.Validate != nil {
				tc.Validate(t, values)
			}
		})
	}
}

// AssertBalanced asserts that fn leaves the stack of L at the same depth.
func AssertBalanced(t testing.TB, L *lua.LState, fn func()) {
	t.Helper()
	before := L.GetTop()
	fn()
	assert.Equal(t, before, L.GetTop(), "stack depth changed")
}

// AssertGrows asserts that fn adds exactly n values to the stack of L.
func AssertGrows(t testing.TB, L *lua.LState, n int, fn func()) {
	t.Helper()
	before := L.GetTop()
	fn()
	assert.Equal(t, before+n, L.GetTop(), "stack grew by %d, want %d", L.GetTop()-before, n)
}
