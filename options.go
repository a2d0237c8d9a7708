package paint

import (
	"log/slog"

	"github.com/gogpu/paint/internal/tip"
)

// Option configures an Engine during creation.
//
// Example:
//
//	cfg, _ := paint.LoadConfig("~/.config/paint.toml")
//	e := paint.NewEngine(1920, 1080, paint.WithConfig(cfg), paint.WithLogger(slog.Default()))
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	config    Config
	logger    *slog.Logger
	tips      *tip.Cache
	observers []func(Event)
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{config: DefaultConfig()}
}

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithLogger sets the engine logger. Without it the engine uses Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTipCache shares a tip cache between engines. The engine does not
// take ownership; ResourceDir changes from ApplyConfig still apply to it.
func WithTipCache(c *tip.Cache) Option {
	return func(o *options) {
		o.tips = c
	}
}

// WithObserver registers fn before the engine emits its first event.
func WithObserver(fn func(Event)) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}
