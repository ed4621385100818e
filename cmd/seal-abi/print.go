package main

import (
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/host"
)

// redirectPrint replaces the global print so script output goes to w.
func redirectPrint(h *host.Host, w io.Writer) {
	L := h.State()
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		_, _ = io.WriteString(w, strings.Join(parts, "\t")+"\n")
		return 0
	}))
}
