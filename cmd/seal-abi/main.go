// Command seal-abi runs Lua scripts against plugin libraries and inspects
// the native ABI table.
//
//	seal-abi run [-config seal.yaml] [-plugin name=lib.wasm]... script.lua
//	seal-abi run -e 'print(require("uuid").v4())'
//	seal-abi abi [-schema]
//	seal-abi check lib.wasm
//	seal-abi schema
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tetratelabs/wazero"

	"github.com/seal-runtime/seal-abi/abi"
	"github.com/seal-runtime/seal-abi/application/schema"
	"github.com/seal-runtime/seal-abi/domain/entities"
	derrors "github.com/seal-runtime/seal-abi/domain/errors"
	"github.com/seal-runtime/seal-abi/host"
	sealwazero "github.com/seal-runtime/seal-abi/infrastructure/wazero"
	"github.com/seal-runtime/seal-abi/plugins/demo"
	sealuuid "github.com/seal-runtime/seal-abi/plugins/uuid"
)

const usage = `usage: seal-abi <command> [flags]

commands:
  run     run a script with plugin libraries loaded
  abi     print the ABI table as JSON
  check   check a plugin binary against the ABI table
  schema  print the JSON Schema of the configuration file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var (
		err        error
		jsonErrors bool
	)
	switch args[0] {
	case "run":
		jsonErrors, err = cmdRun(ctx, args[1:], stdout, stderr)
	case "abi":
		err = cmdABI(args[1:], stdout, stderr)
	case "check":
		err = cmdCheck(ctx, args[1:], stdout, stderr)
	case "schema":
		err = printSchema(stdout, schema.ConfigSchema)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "seal-abi: unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		if jsonErrors {
			_ = printJSON(stderr, errorReport(err))
		} else {
			fmt.Fprintf(stderr, "seal-abi: %v\n", err)
		}
		return 1
	}
	return 0
}

// pluginFlag collects repeated -plugin name=path flags.
type pluginFlag map[string]string

func (p pluginFlag) String() string {
	parts := make([]string, 0, len(p))
	for name, path := range p {
		parts = append(parts, name+"="+path)
	}
	return strings.Join(parts, ",")
}

func (p pluginFlag) Set(v string) error {
	name, path, ok := strings.Cut(v, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path, got %q", v)
	}
	if _, dup := p[name]; dup {
		return fmt.Errorf("plugin %q given twice", name)
	}
	p[name] = path
	return nil
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) (jsonErrors bool, err error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (.yaml, .toml or .json)")
	chunk := fs.String("e", "", "run this chunk instead of a script file")
	logLevel := fs.String("log-level", "", "override the configured log level")
	builtins := fs.Bool("builtins", true, "register the statically linked uuid and demo libraries")
	fs.BoolVar(&jsonErrors, "json-errors", false, "report a failure as a structured JSON error on stderr")
	plugins := pluginFlag{}
	fs.Var(plugins, "plugin", "load a plugin library as name=path.wasm (repeatable)")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if *chunk == "" && fs.NArg() != 1 {
		return jsonErrors, errors.New("run: need a script file or -e chunk")
	}
	return jsonErrors, runScript(ctx, runOptions{
		script:     fs.Arg(0),
		configPath: *configPath,
		chunk:      *chunk,
		logLevel:   *logLevel,
		builtins:   *builtins,
		plugins:    plugins,
	}, stdout, stderr)
}

type runOptions struct {
	script     string
	configPath string
	chunk      string
	logLevel   string
	builtins   bool
	plugins    pluginFlag
}

func runScript(ctx context.Context, o runOptions, stdout, stderr io.Writer) error {
	cfg := host.DefaultConfig()
	if o.configPath != "" {
		loaded, err := host.LoadConfig(o.configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if cfg.Libraries == nil {
		cfg.Libraries = map[string]string{}
	}
	for name, path := range o.plugins {
		cfg.Libraries[name] = path
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	h, err := host.New(ctx, host.WithConfig(cfg), host.WithLogger(newLogger(stderr, cfg.Level())))
	if err != nil {
		return err
	}
	defer h.Close(context.WithoutCancel(ctx))

	if o.builtins {
		if err := sealuuid.Register(h); err != nil {
			return err
		}
		if err := demo.Register(h); err != nil {
			return err
		}
	}
	if stdout != os.Stdout {
		redirectPrint(h, stdout)
	}

	if o.chunk != "" {
		return h.DoString(ctx, o.chunk)
	}
	return h.DoFile(ctx, o.script)
}

func cmdABI(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("abi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	withSchema := fs.Bool("schema", false, "print the JSON Schema of the table descriptor instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *withSchema {
		return printSchema(stdout, schema.TableSchema)
	}
	return printJSON(stdout, schema.DescribeTable(abi.API()))
}

func cmdCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "library name (default: file name without extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("check: need one plugin file")
	}
	path := fs.Arg(0)
	if *name == "" {
		base := path[strings.LastIndexAny(path, `/\`)+1:]
		*name = strings.TrimSuffix(base, ".wasm")
	}

	wasm, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator
	if err != nil {
		return err
	}
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compile %s: %w", path, err)
	}
	compat, err := sealwazero.CheckModule(*name, compiled, abi.ModuleName)
	if err != nil {
		return err
	}

	entry := abi.EntrySymbol(*name)
	_, hasEntry := compiled.ExportedFunctions()[entry]
	return printJSON(stdout, struct {
		Name     string   `json:"name"`
		Entry    string   `json:"entry"`
		HasEntry bool     `json:"has_entry"`
		Declared uint32   `json:"declared_version"`
		Imports  []string `json:"imports"`
	}{*name, entry, hasEntry, compat.Declared, compat.Imports})
}

func printSchema(w io.Writer, generate func() ([]byte, error)) error {
	b, err := generate()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorReport describes err for -json-errors. Context added by wrapping
// becomes the outer detail around the boundary error.
func errorReport(err error) *entities.ErrorDetail {
	d := derrors.ToErrorDetail(err)
	var re *derrors.RuntimeError
	if errors.As(err, &re) && re.Trace != "" {
		d.WithDetails(map[string]any{"trace": re.Trace})
	}
	var de derrors.DetailedError
	if !errors.As(err, &de) || error(de) == err {
		return d
	}
	outer := entities.NewErrorDetail("internal", err.Error())
	outer.Wrapped = d
	return outer
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
