package vcore

import (
	"fmt"
	"regexp"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celMaxArity bounds the filter overloads declared per function. CEL needs a
// fixed signature per overload, so filters accept one to celMaxArity args.
const celMaxArity = 4

var celIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes the registry filters as CEL functions.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.registry = registry
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// celEvaluator shares checked ASTs through the ProgramCache. Programs carry
// the filter bindings of one evaluator, so they stay local to it.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	mu       sync.Mutex
	programs map[string]*celProgram
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Programs are
// type-checked against the snapshot keys, so one expression compiles once
// per distinct key set.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.snapshotKeys())
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *celEvaluator) Compile(expression string) (CompiledExpr, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledExpr{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) run(ctx EvalContext, expression string, program *celProgram) (any, error) {
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.label(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string, vars []string) (*celProgram, error) {
	key := programKey("cel", e.registry.Names(), expression, vars...)
	e.mu.Lock()
	program, ok := e.programs[key]
	e.mu.Unlock()
	if ok {
		return program, nil
	}

	env, err := e.buildEnv(vars)
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	var ast *celgo.Ast
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			ast, _ = cached.(*celgo.Ast)
		}
	}
	if ast == nil {
		compiled, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, wrapEvaluationError("cel", expression, "", issues.Err())
		}
		ast = compiled
		if e.cache != nil {
			e.cache.Set(key, ast)
		}
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}

	program = &celProgram{
		env:     env,
		program: prg,
	}
	e.mu.Lock()
	if e.programs == nil {
		e.programs = map[string]*celProgram{}
	}
	e.programs[key] = program
	e.mu.Unlock()
	return program, nil
}

func (e *celEvaluator) buildEnv(vars []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
	}
	for _, key := range vars {
		if key == "now" || !celIdentifier.MatchString(key) {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry.Len() == 0 {
		return celgo.NewEnv(opts...)
	}

	callOverloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		args := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			args = append(args, celgo.DynType)
		}
		callOverloads = append(callOverloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn_%d", arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		))
	}
	opts = append(opts, celgo.Function("call", callOverloads...))

	for _, name := range e.registry.Names() {
		if !celIdentifier.MatchString(name) {
			continue
		}
		overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
		for arity := 1; arity <= celMaxArity; arity++ {
			args := make([]*celgo.Type, arity)
			for i := range args {
				args[i] = celgo.DynType
			}
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("%s_dyn_%d", name, arity),
				args,
				celgo.DynType,
				celgo.FunctionBinding(e.filterBinding(name)),
			))
		}
		opts = append(opts, celgo.Function(name, overloads...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx EvalContext) map[string]any {
	activation := make(map[string]any, len(ctx.Snapshot)+1)
	for key, value := range ctx.Snapshot {
		activation[key] = value
	}
	activation["now"] = ctx.timestamp()
	return activation
}

type celCompiledExpr struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledExpr) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled expression missing evaluator"))
	}
	ctx = ctx.withDefaults()
	program, err := r.evaluator.loadOrCompile(r.expression, ctx.snapshotKeys())
	if err != nil {
		return nil, err
	}
	return r.evaluator.run(ctx, r.expression, program)
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("vcore: call requires a filter name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("vcore: call name must be a string")
		}
		return e.invoke(name, values[1:])
	}
}

func (e *celEvaluator) filterBinding(name string) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		return e.invoke(name, values)
	}
}

func (e *celEvaluator) invoke(name string, values []ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, val := range values {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.WrapErr(err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
