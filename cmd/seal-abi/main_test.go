package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seal-runtime/seal-abi/abi"
	derrors "github.com/seal-runtime/seal-abi/domain/errors"
	"github.com/seal-runtime/seal-abi/internal/wasmtest"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".wasm")
	require.NoError(t, os.WriteFile(path, wasmtest.Sample(wasmtest.SampleOptions{Name: name, Version: 1}), 0o600))
	return path
}

func TestRun_Chunk(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-e", `print(require("demo").greet("cli"), 1)`)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "hello, cli\t1\n", out)
}

func TestRun_Plugin(t *testing.T) {
	path := writeSample(t, "sample")

	code, out, errOut := runCLI(t, "run", "-plugin", "sample="+path, "-e", `print(require("sample").double(21))`)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "42\n", out)
}

func TestRun_ScriptFileAndConfig(t *testing.T) {
	dir := t.TempDir()
	lib := writeSample(t, "sample")
	cfg := filepath.Join(dir, "seal.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("log_level = \"warn\"\n[libraries]\nsample = \""+filepath.ToSlash(lib)+"\"\n"), 0o600))
	script := filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(script, []byte(`print(require("sample").bytes("ok"))`), 0o600))

	code, out, errOut := runCLI(t, "run", "-config", cfg, "-builtins=false", script)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "ok\n", out)
	assert.Empty(t, errOut)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"script error", []string{"run", "-e", `require("demo").fail("boom")`}, 1, "<string>:1: boom"},
		{"no script", []string{"run"}, 1, "need a script file or -e chunk"},
		{"bad plugin flag", []string{"run", "-plugin", "nameonly", "-e", "x=1"}, 1, "want name=path"},
		{"missing plugin", []string{"run", "-plugin", "gone=/nonexistent/gone.wasm", "-e", "x=1"}, 1, "load gone"},
		{"bad level", []string{"run", "-log-level", "loud", "-e", "x=1"}, 1, "config validation failed"},
		{"unknown command", []string{"frobnicate"}, 2, `unknown command "frobnicate"`},
		{"no command", nil, 2, "usage: seal-abi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestABI(t *testing.T) {
	code, out, errOut := runCLI(t, "abi")
	require.Equal(t, 0, code, errOut)

	var d struct {
		Module  string `json:"module"`
		Version uint32 `json:"version"`
		Fields  []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, abi.ModuleName, d.Module)
	assert.Len(t, d.Fields, abi.API().Len())
	assert.Equal(t, "seal_abi_version", d.Fields[0].Name)

	code, out, _ = runCLI(t, "abi", "-schema")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"$schema"`)
}

func TestCheck(t *testing.T) {
	path := writeSample(t, "sample")

	code, out, errOut := runCLI(t, "check", path)
	require.Equal(t, 0, code, errOut)

	var report struct {
		Entry    string   `json:"entry"`
		HasEntry bool     `json:"has_entry"`
		Declared uint32   `json:"declared_version"`
		Imports  []string `json:"imports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "luaopen_sample", report.Entry)
	assert.True(t, report.HasEntry)
	assert.Equal(t, uint32(1), report.Declared)
	assert.Contains(t, report.Imports, "seal_error_wrap")

	code, out, _ = runCLI(t, "check", "-name", "other", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"has_entry": false`)
}

func TestSchema(t *testing.T) {
	code, out, _ := runCLI(t, "schema")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"$id": "urn:seal-abi:schema:config"`)
	assert.Contains(t, out, `"error_module"`)
	assert.Contains(t, out, `"libraries"`)
}

func TestRun_JSONErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "-json-errors", "-log-level", "error", "-e", `require("demo").fail("boom")`)
	require.Equal(t, 1, code)

	var detail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Source  string `json:"source"`
		Line    int    `json:"line"`
	}
	require.NoError(t, json.Unmarshal([]byte(errOut), &detail), errOut)
	assert.Equal(t, "boom", detail.Message)
	assert.Equal(t, "runtime", detail.Type)
	assert.Equal(t, "<string>", detail.Source)
	assert.Equal(t, 1, detail.Line)
}

func TestErrorReport_Wrapped(t *testing.T) {
	inner := &derrors.VersionError{Plugin: "p", Want: 2, Have: 1}
	d := errorReport(fmt.Errorf("load p: %w", inner))

	assert.Equal(t, "internal", d.Type)
	assert.Equal(t, "load p: plugin p requires ABI v2, host provides v1", d.Message)
	require.NotNil(t, d.Wrapped)
	assert.Equal(t, "version", d.Wrapped.Type)

	plain := errorReport(inner)
	assert.Equal(t, "version", plain.Type)
	assert.Nil(t, plain.Wrapped)
}
