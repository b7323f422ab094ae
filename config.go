package vcore

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// StrategyFunc merges the parent and child values of a custom option key.
// vm is nil when merging outside instance creation.
type StrategyFunc func(parent, child any, vm *Instance, key string) (any, error)

// ErrorHandler receives errors reported through Instance.HandleError.
type ErrorHandler func(err error, vm *Instance, info string)

// WarnHandler receives development warnings instead of the logger.
type WarnHandler func(msg string, vm *Instance, trace string)

// Config holds the global settings of a root constructor. Roots expose it
// read-only; fields change through the root's setters, never by replacing
// the whole value.
type Config struct {
	Silent      bool   `env:"VCORE_SILENT"`
	Production  bool   `env:"VCORE_PRODUCTION"`
	DevTools    bool   `env:"VCORE_DEVTOOLS" envDefault:"true"`
	Performance bool   `env:"VCORE_PERFORMANCE"`
	ExprEngine  string `env:"VCORE_EXPR_ENGINE" envDefault:"expr"`

	IgnoredElements []string       `env:"VCORE_IGNORED_ELEMENTS" envSeparator:","`
	KeyCodes        map[string]int

	OptionMergeStrategies map[string]StrategyFunc
	ErrorHandler          ErrorHandler
	WarnHandler           WarnHandler
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		DevTools:   true,
		ExprEngine: "expr",
	}
}

// LoadConfigFromEnv returns configuration parsed from VCORE_* variables on top
// of DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("vcore: parse env: %w", err)
	}
	cfg.ExprEngine = strings.ToLower(strings.TrimSpace(cfg.ExprEngine))
	return cfg, nil
}

func (c Config) clone() Config {
	out := c
	if c.IgnoredElements != nil {
		out.IgnoredElements = append([]string(nil), c.IgnoredElements...)
	}
	if c.KeyCodes != nil {
		out.KeyCodes = make(map[string]int, len(c.KeyCodes))
		for k, v := range c.KeyCodes {
			out.KeyCodes[k] = v
		}
	}
	if c.OptionMergeStrategies != nil {
		out.OptionMergeStrategies = make(map[string]StrategyFunc, len(c.OptionMergeStrategies))
		for k, v := range c.OptionMergeStrategies {
			out.OptionMergeStrategies[k] = v
		}
	}
	return out
}

// Config returns a copy of the root configuration.
func (c *Constructor) Config() Config {
	return c.global.config.clone()
}

// SetSilent suppresses warnings.
func (c *Constructor) SetSilent(silent bool) {
	c.global.config.Silent = silent
}

// SetProduction toggles production mode. Production mode skips development
// diagnostics.
func (c *Constructor) SetProduction(production bool) {
	c.global.config.Production = production
}

// SetDevTools toggles devtools integration flags.
func (c *Constructor) SetDevTools(enabled bool) {
	c.global.config.DevTools = enabled
}

// SetPerformance toggles performance tracing flags.
func (c *Constructor) SetPerformance(enabled bool) {
	c.global.config.Performance = enabled
}

// SetExprEngine selects the engine used for expression computed properties.
// It drops cached evaluators.
func (c *Constructor) SetExprEngine(engine string) {
	g := c.global
	g.config.ExprEngine = strings.ToLower(strings.TrimSpace(engine))
	g.evaluatorGen++
}

// SetIgnoredElements replaces the list of element tags the render layer skips.
func (c *Constructor) SetIgnoredElements(tags ...string) {
	c.global.config.IgnoredElements = append([]string(nil), tags...)
}

// SetKeyCode registers a key alias.
func (c *Constructor) SetKeyCode(name string, code int) {
	cfg := &c.global.config
	next := make(map[string]int, len(cfg.KeyCodes)+1)
	for k, v := range cfg.KeyCodes {
		next[k] = v
	}
	next[name] = code
	cfg.KeyCodes = next
}

// SetMergeStrategy registers a merge strategy for a custom option key. A nil
// fn removes it.
func (c *Constructor) SetMergeStrategy(key string, fn StrategyFunc) {
	cfg := &c.global.config
	next := make(map[string]StrategyFunc, len(cfg.OptionMergeStrategies)+1)
	for k, v := range cfg.OptionMergeStrategies {
		next[k] = v
	}
	if fn == nil {
		delete(next, key)
	} else {
		next[key] = fn
	}
	cfg.OptionMergeStrategies = next
}

// SetErrorHandler installs the global error handler.
func (c *Constructor) SetErrorHandler(fn ErrorHandler) {
	c.global.config.ErrorHandler = fn
}

// SetWarnHandler routes warnings to fn instead of the logger.
func (c *Constructor) SetWarnHandler(fn WarnHandler) {
	c.global.config.WarnHandler = fn
}

// SetLogger replaces the root logger. A nil logger falls back to the package
// logger.
func (c *Constructor) SetLogger(logger *zap.Logger) {
	c.global.logger = logger
}
