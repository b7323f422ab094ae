package vcore

import (
	"sort"
	"time"
)

// EvalContext carries the inputs of one expression evaluation. Snapshot
// holds the instance props, data and the computed values resolved so far.
type EvalContext struct {
	Snapshot  map[string]any
	Now       *time.Time
	Component string
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx EvalContext) label() string {
	if ctx.Component == "" {
		return "<Anonymous>"
	}
	return ctx.Component
}

// snapshotKeys returns the sorted snapshot keys. Engines that type-check
// against declared variables key their programs on this list.
func (ctx EvalContext) snapshotKeys() []string {
	keys := make([]string, 0, len(ctx.Snapshot))
	for key := range ctx.Snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Evaluator executes expressions against an evaluation context.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledExpr, error)
}

// CompiledExpr is a reusable expression program.
type CompiledExpr interface {
	Evaluate(ctx EvalContext) (any, error)
}

// EvaluatorFactory builds the evaluator for engine. Constructors call it
// with the filters of their resolved options.
type EvaluatorFactory func(engine string, registry *FunctionRegistry, cache ProgramCache) (Evaluator, error)
