package host

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"

	"github.com/seal-runtime/seal-abi/abi"
)

// validate is shared; building a validator is expensive.
var validate = validator.New()

// Config is the host configuration. It can be loaded from YAML, TOML or JSON.
type Config struct {
	// VM sizing, passed to gopher-lua.
	CallStackSize       int  `yaml:"call_stack_size" toml:"call_stack_size" json:"call_stack_size,omitempty" validate:"gte=0" jsonschema:"description=Maximum depth of the VM call stack (0 uses the VM default)"`
	RegistrySize        int  `yaml:"registry_size" toml:"registry_size" json:"registry_size,omitempty" validate:"gte=0" jsonschema:"description=Initial size of the VM value stack"`
	RegistryMaxSize     int  `yaml:"registry_max_size" toml:"registry_max_size" json:"registry_max_size,omitempty" validate:"gte=0" jsonschema:"description=Upper bound the value stack may grow to (0 disables growth)"`
	MinimizeStackMemory bool `yaml:"minimize_stack_memory" toml:"minimize_stack_memory" json:"minimize_stack_memory,omitempty" jsonschema:"description=Grow and shrink the call stack on demand"`
	MinimalLibs         bool `yaml:"minimal_libs" toml:"minimal_libs" json:"minimal_libs,omitempty" jsonschema:"description=Open only the base/package/debug libraries"`

	// Plugin boundary.
	ErrorModule          string `yaml:"error_module" toml:"error_module" json:"error_module" validate:"required" jsonschema:"description=Module the structured error constructor is required from,default=seal.error"`
	MaxStack             int    `yaml:"max_stack" toml:"max_stack" json:"max_stack" validate:"gte=20" jsonschema:"description=Largest stack a plugin may request with lua_checkstack,default=8000"`
	MaxCString           uint32 `yaml:"max_cstring" toml:"max_cstring" json:"max_cstring" validate:"gt=0" jsonschema:"description=Longest NUL-terminated string read from plugin memory"`
	RequireVersionMarker bool   `yaml:"require_version_marker" toml:"require_version_marker" json:"require_version_marker,omitempty" jsonschema:"description=Reject plugins that do not export seal_abi_version_<n>"`

	// WebAssembly runtime.
	MemoryLimitPages   uint32 `yaml:"memory_limit_pages" toml:"memory_limit_pages" json:"memory_limit_pages,omitempty" validate:"lte=65536" jsonschema:"description=Per-plugin memory limit in 64KiB pages (0 uses the runtime default)"`
	CloseOnContextDone bool   `yaml:"close_on_context_done" toml:"close_on_context_done" json:"close_on_context_done,omitempty" jsonschema:"description=Abort plugin code when the calling context is done"`
	CacheDir           string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir,omitempty" jsonschema:"description=Directory for compiled plugin code shared across runs"`

	// Libraries maps library names to WebAssembly files loaded by New.
	Libraries map[string]string `yaml:"libraries" toml:"libraries" json:"libraries,omitempty" validate:"dive,keys,required,endkeys,required" jsonschema:"description=Plugin libraries loaded at startup keyed by module name"`

	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		RegistryMaxSize: 16 * 1024,
		ErrorModule:     abi.DefaultErrorModule,
		MaxStack:        abi.DefaultMaxStack,
		MaxCString:      abi.DefaultMaxCString,
		LogLevel:        "info",
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if n := abi.RegistryCapacity(c.StateOptions()); c.MaxStack > n {
		return fmt.Errorf("config validation failed: max_stack %d exceeds the VM value stack of %d", c.MaxStack, n)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// StateOptions returns the gopher-lua options for the main state.
func (c *Config) StateOptions() lua.Options {
	return lua.Options{
		CallStackSize:       c.CallStackSize,
		RegistrySize:        c.RegistrySize,
		RegistryMaxSize:     c.RegistryMaxSize,
		MinimizeStackMemory: c.MinimizeStackMemory,
		SkipOpenLibs:        c.MinimalLibs,
	}
}

// LoadConfig reads a configuration file. The format follows the extension:
// .yaml/.yml, .toml or .json. Relative library paths are resolved against
// the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for name, lib := range cfg.Libraries {
		if !filepath.IsAbs(lib) {
			cfg.Libraries[name] = filepath.Join(dir, lib)
		}
	}
	return cfg, nil
}

// ParseConfig decodes data in the given format ("yaml", "toml" or "json",
// with or without a leading dot) over DefaultConfig and validates the result.
func ParseConfig(data []byte, format string) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cfg)
	case "toml":
		err = toml.Unmarshal(data, &cfg)
	case "json":
		err = json.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", format, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
