// Package config centralizes the engine's process-wide tunables: data
// stack capacity, call-stack depth, and global pool size.
package config

// Config holds the tunables a VM is constructed with.
type Config struct {
	// StackSize bounds the data stack; exceeding it raises DataStackOverflow.
	StackSize int

	// MaxFrames bounds call depth; exceeding it raises CallStackOverflow.
	MaxFrames int

	// GlobalsSize is the upper bound on global bindings — operands for
	// OpGetGlobal/OpSetGlobal are 16 bits wide, so this can never exceed
	// 65536.
	GlobalsSize int
}

// Option configures a Config.
type Option func(*Config)

// WithStackSize overrides the data stack capacity.
func WithStackSize(n int) Option {
	return func(c *Config) { c.StackSize = n }
}

// WithMaxFrames overrides the call stack depth.
func WithMaxFrames(n int) Option {
	return func(c *Config) { c.MaxFrames = n }
}

// WithGlobalsSize overrides the global pool size.
func WithGlobalsSize(n int) Option {
	return func(c *Config) { c.GlobalsSize = n }
}

// Default returns the engine's default tunables.
func Default() Config {
	return Config{
		StackSize:   20480,
		MaxFrames:   2048,
		GlobalsSize: 65536,
	}
}

// New builds a Config starting from Default and applying opts in order.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
