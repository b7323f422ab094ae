package vcore

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Expression engines accepted by Config.ExprEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// DefaultEvaluatorFactory builds the evaluators shipped with vcore. The js
// engine requires the js_eval build tag.
func DefaultEvaluatorFactory(engine string, registry *FunctionRegistry, cache ProgramCache) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: engine %q requires the js_eval build tag", ErrNoEvaluator, engine)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

// ctorEvaluator caches the evaluator built for one resolved options bag.
type ctorEvaluator struct {
	filters   map[string]Filter
	gen       uint64
	evaluator Evaluator
}

func (e *ctorEvaluator) matches(filters map[string]Filter, gen uint64) bool {
	return e != nil && e.gen == gen && sameValue(e.filters, filters)
}

func (g *globalState) buildEvaluator(filters map[string]Filter) (Evaluator, error) {
	registry, err := NewFunctionRegistryFromFilters(filters)
	if err != nil {
		return nil, err
	}
	factory := g.evaluatorFactory
	if factory == nil {
		factory = DefaultEvaluatorFactory
	}
	evaluator, err := factory(g.config.ExprEngine, registry, g.programCache)
	if err != nil {
		return nil, err
	}
	if isNilEvaluator(evaluator) {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}

func isNilEvaluator(e Evaluator) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// evaluator returns the evaluator bound to the filters of the constructor's
// resolved options. It is rebuilt when the filters registry or the engine
// changes.
func (c *Constructor) evaluator() (Evaluator, error) {
	options, err := c.ResolveOptions()
	if err != nil {
		return nil, err
	}
	g := c.global
	if c.eval.matches(options.Filters, g.evaluatorGen) {
		return c.eval.evaluator, nil
	}
	evaluator, err := g.buildEvaluator(options.Filters)
	if err != nil {
		return nil, err
	}
	c.eval = &ctorEvaluator{filters: options.Filters, gen: g.evaluatorGen, evaluator: evaluator}
	return evaluator, nil
}

// evaluator returns the constructor evaluator unless the instance declares
// its own filters.
func (vm *Instance) evaluator() (Evaluator, error) {
	if vm.ctor != nil && vm.ctor.options != nil && sameValue(vm.options.Filters, vm.ctor.options.Filters) {
		return vm.ctor.evaluator()
	}
	g := vm.global
	if vm.eval.matches(vm.options.Filters, g.evaluatorGen) {
		return vm.eval.evaluator, nil
	}
	evaluator, err := g.buildEvaluator(vm.options.Filters)
	if err != nil {
		return nil, err
	}
	vm.eval = &ctorEvaluator{filters: vm.options.Filters, gen: g.evaluatorGen, evaluator: evaluator}
	return evaluator, nil
}

// Evaluate runs expr against the instance props, data and the computed
// values resolved so far. Filters of the instance are callable by name.
func (vm *Instance) Evaluate(expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("vcore: expression must not be empty")
	}
	evaluator, err := vm.evaluator()
	if err != nil {
		return nil, err
	}
	ctx := EvalContext{
		Snapshot:  vm.snapshot(),
		Component: formatComponentName(vm),
	}.withDefaults()

	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(vm.global.config.ExprEngine, expr, ctx.Component, evalErr)
	vm.global.evaluatorLog().LogEvaluation(EvaluatorLogEvent{
		Engine:    vm.global.config.ExprEngine,
		Expr:      expr,
		Component: ctx.Component,
		Duration:  duration,
		Err:       evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (g *globalState) evaluatorLog() EvaluatorLogger {
	if g.evaluatorLogger != nil {
		return g.evaluatorLogger
	}
	return noopEvaluatorLogger{}
}
