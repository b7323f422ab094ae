package vcore

import (
	"github.com/goliatone/go-vcore/pkg/activity"
	"github.com/goliatone/go-vcore/scheduler"
	"go.uber.org/zap"
)

// RootOption configures a root constructor.
type RootOption func(*rootConfig)

type rootConfig struct {
	config           Config
	logger           *zap.Logger
	scheduler        *scheduler.Queue
	mounter          Mounter
	activityHooks    activity.Hooks
	evaluatorFactory EvaluatorFactory
	programCache     ProgramCache
	evaluatorLogger  EvaluatorLogger
}

func applyRootOptions(opts []RootOption) rootConfig {
	cfg := rootConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithConfig seeds the root configuration. Later changes go through the
// root's setters.
func WithConfig(config Config) RootOption {
	return func(cfg *rootConfig) {
		cfg.config = config.clone()
	}
}

// WithLogger routes the root diagnostics to logger instead of the package
// logger.
func WithLogger(logger *zap.Logger) RootOption {
	return func(cfg *rootConfig) {
		cfg.logger = logger
	}
}

// WithScheduler shares a scheduler queue between roots.
func WithScheduler(queue *scheduler.Queue) RootOption {
	return func(cfg *rootConfig) {
		cfg.scheduler = queue
	}
}

// WithMounter installs the render collaborator used by Mount.
func WithMounter(mounter Mounter) RootOption {
	return func(cfg *rootConfig) {
		cfg.mounter = mounter
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks ...activity.ActivityHook) RootOption {
	normalized := activity.CloneHooks(activity.Hooks(hooks))
	return func(cfg *rootConfig) {
		cfg.activityHooks = append(cfg.activityHooks, normalized...)
	}
}

// WithEvaluatorFactory replaces DefaultEvaluatorFactory.
func WithEvaluatorFactory(factory EvaluatorFactory) RootOption {
	return func(cfg *rootConfig) {
		cfg.evaluatorFactory = factory
	}
}

// WithProgramCache shares a compiled program cache.
func WithProgramCache(cache ProgramCache) RootOption {
	return func(cfg *rootConfig) {
		cfg.programCache = cache
	}
}

// WithEvaluatorLogger records every expression evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) RootOption {
	return func(cfg *rootConfig) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}
