package uuid_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/host"
	sealuuid "github.com/seal-runtime/seal-abi/plugins/uuid"
)

func newHost(t *testing.T) *host.Host {
	t.Helper()
	ctx := context.Background()
	h, err := host.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(ctx) })
	require.NoError(t, sealuuid.Register(h))
	return h
}

func eval(t *testing.T, h *host.Host, src string) lua.LValue {
	t.Helper()
	require.NoError(t, h.DoString(context.Background(), "result = "+src))
	return h.State().GetGlobal("result")
}

func TestGenerate(t *testing.T) {
	h := newHost(t)

	for expr, version := range map[string]uuid.Version{
		`require("uuid").v4()`: 4,
		`require("uuid").v7()`: 7,
	} {
		v := eval(t, h, expr)
		id, err := uuid.Parse(v.String())
		require.NoError(t, err, expr)
		assert.Equal(t, version, id.Version(), expr)
	}

	assert.Equal(t, uuid.Nil.String(), eval(t, h, `require("uuid")["nil"]()`).String())
	assert.Equal(t, lua.LFalse, eval(t, h, `require("uuid").v4() == require("uuid").v4()`))
}

func TestParse(t *testing.T) {
	h := newHost(t)
	id := uuid.Must(uuid.NewV7())

	require.NoError(t, h.DoString(context.Background(), `
		local info = require("uuid").parse("`+id.String()+`")
		version, variant, time = info.version, info.variant, info.time
		bad, msg = require("uuid").parse("nope")
	`))
	L := h.State()
	assert.Equal(t, lua.LNumber(7), L.GetGlobal("version"))
	assert.Equal(t, lua.LString("RFC4122"), L.GetGlobal("variant"))
	assert.Equal(t, lua.LTNumber, L.GetGlobal("time").Type())
	assert.Equal(t, lua.LNil, L.GetGlobal("bad"))
	assert.Contains(t, L.GetGlobal("msg").String(), "invalid UUID")
}

func TestValid(t *testing.T) {
	h := newHost(t)

	assert.Equal(t, lua.LTrue, eval(t, h, `require("uuid").valid(require("uuid").v4())`))
	assert.Equal(t, lua.LFalse, eval(t, h, `require("uuid").valid("zzz")`))

	err := h.DoString(context.Background(), `require("uuid").valid()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad argument #1 to 'valid' (string expected, got no value)")
}
