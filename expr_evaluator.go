package vcore

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes the registry filters as expr functions.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.registry = registry
	}
}

// exprEvaluator evaluates computed expressions with github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against ctx.Snapshot.
func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.label(), err)
	}
	return result, nil
}

// Compile returns a reusable program for expression.
func (e *exprEvaluator) Compile(expression string) (CompiledExpr, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledExpr{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	names := e.registry.Names()
	key := programKey("expr", names, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{"call": exprCallSignature}),
		exprlang.AllowUndefinedVariables(),
	}
	if len(names) > 0 {
		options = append(options, exprlang.Patch(newFilterCallPatcher(names)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

// exprCallSignature types the call helper at compile time. The runtime
// environment supplies the function bound to the running evaluator.
var exprCallSignature = (func(name string, arguments ...any) (any, error))(nil)

// filterCallPatcher rewrites name(args...) into call("name", args...) for
// every registered filter, so compiled programs hold no filter references.
type filterCallPatcher struct {
	names map[string]struct{}
}

func newFilterCallPatcher(names []string) *filterCallPatcher {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return &filterCallPatcher{names: set}
}

func (p *filterCallPatcher) Visit(node *exprast.Node) {
	call, ok := (*node).(*exprast.CallNode)
	if !ok {
		return
	}
	ident, ok := call.Callee.(*exprast.IdentifierNode)
	if !ok {
		return
	}
	if _, registered := p.names[ident.Value]; !registered {
		return
	}
	arguments := make([]exprast.Node, 0, len(call.Arguments)+1)
	arguments = append(arguments, &exprast.StringNode{Value: ident.Value})
	arguments = append(arguments, call.Arguments...)
	exprast.Patch(node, &exprast.CallNode{
		Callee:    &exprast.IdentifierNode{Value: "call"},
		Arguments: arguments,
	})
}

type exprCompiledExpr struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledExpr) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("compiled expression missing evaluator"))
	}
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.label(), err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(ctx EvalContext) map[string]any {
	env := make(map[string]any, len(ctx.Snapshot)+2)
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	registry := e.registry
	env["call"] = func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
	return env
}
