package host

import (
	"log/slog"

	"github.com/tetratelabs/wazero"

	sealwazero "github.com/seal-runtime/seal-abi/infrastructure/wazero"
)

// Option configures a Host.
type Option func(*options)

type options struct {
	cfg        Config
	logger     *slog.Logger
	middleware []sealwazero.Middleware
	runtime    wazero.RuntimeConfig
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger for plugin records and host diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMiddleware wraps every ABI field. Panic recovery always runs outermost.
func WithMiddleware(mw ...sealwazero.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithRuntimeConfig sets the wazero runtime configuration. The memory limit,
// cache directory and context settings of Config are applied on top of it.
func WithRuntimeConfig(rc wazero.RuntimeConfig) Option {
	return func(o *options) {
		o.runtime = rc
	}
}
