package vellum

import (
	"go.uber.org/zap"

	"github.com/romecore/vellum/internal"
)

// Option is a functional option for configuring an Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	maxFrameDepth        int
	logger               *zap.Logger
	library              *internal.Library
	propertiesToLowercase bool
}

// defaultEngineConfig returns the default engine configuration: the
// frame-depth ceiling from spec section 3, no logging, and a private
// library so @render calls without an explicit library fall through to
// SharedLibrary() (internal/library.go).
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		maxFrameDepth: internal.DefaultMaxFrameDepth,
		logger:        nil,
		library:       internal.NewLibrary(),
	}
}

// WithMaxFrameDepth overrides the maximum lexical-scope stack depth a
// single render may push before failing with a stack-overflow error.
// Default: internal.DefaultMaxFrameDepth (1000).
func WithMaxFrameDepth(depth int) Option {
	return func(c *engineConfig) {
		if depth > 0 {
			c.maxFrameDepth = depth
		}
	}
}

// WithLogger sets the structured logger an Engine uses for parse and
// render checkpoints. Default: nil, which engine.go treats as
// zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithLibrary sets the Library an Engine resolves `@render` against
// when rendering a template that belongs to no library of its own.
// Parse does not register templates into it. Default: a fresh private
// Library.
func WithLibrary(lib *Library) Option {
	return func(c *engineConfig) {
		if lib != nil {
			c.library = lib.inner
		}
	}
}

// WithPropertiesToLowerCase makes host-object property lookups
// case-insensitive (spec section 4.1's PropertiesToLowerCase), for
// rendering against data decoded from case-inconsistent sources.
func WithPropertiesToLowerCase() Option {
	return func(c *engineConfig) {
		c.propertiesToLowercase = true
	}
}
