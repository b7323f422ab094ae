package vcore

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func capsFilter(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("caps: missing argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, errors.New("caps: expected string")
	}
	return strings.ToUpper(s), nil
}

func shoutingComponent(t *testing.T, root *Constructor) *Instance {
	t.Helper()
	ctor := mustExtend(t, root, &Options{
		Name: "banner",
		Data: staticData(map[string]any{"name": "ada", "count": 2}),
		Computed: map[string]Computed{
			"shout":   {Expr: `caps(name)`},
			"loud":    {Expr: `shout + "!"`},
			"doubled": {Expr: `count * 2`},
		},
	})
	return mustNew(t, ctor, nil)
}

func TestExpressionComputed(t *testing.T) {
	for _, engine := range []string{EngineExpr, EngineCEL} {
		t.Run(engine, func(t *testing.T) {
			root := NewRoot()
			root.SetExprEngine(engine)
			if _, err := root.RegisterFilter("caps", capsFilter); err != nil {
				t.Fatalf("register filter: %v", err)
			}
			vm := shoutingComponent(t, root)

			if got := mustGet(t, vm, "loud"); got != "ADA!" {
				t.Fatalf("expected ADA!, got %v", got)
			}
			if err := vm.Set("name", "grace"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if got := mustGet(t, vm, "loud"); got != "GRACE!" {
				t.Fatalf("expected GRACE!, got %v", got)
			}

			doubled := mustGet(t, vm, "doubled")
			switch v := doubled.(type) {
			case int:
				if v != 4 {
					t.Fatalf("expected 4, got %v", v)
				}
			case int64:
				if v != 4 {
					t.Fatalf("expected 4, got %v", v)
				}
			default:
				t.Fatalf("unexpected type %T", doubled)
			}
		})
	}
}

func TestEvaluateCallHelper(t *testing.T) {
	root := NewRoot()
	root.SetExprEngine(EngineCEL)
	if _, err := root.RegisterFilter("caps", capsFilter); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	vm := mustNew(t, root, &Options{Data: staticData(map[string]any{"name": "ada"})})
	value, err := vm.Evaluate(`call("caps", name)`)
	if err != nil || value != "ADA" {
		t.Fatalf("expected ADA, got %v (%v)", value, err)
	}
}

func TestEvaluatorRebuiltAfterFilterRegistration(t *testing.T) {
	root := NewRoot()
	ctor := mustExtend(t, root, &Options{Data: staticData(map[string]any{"name": "ada"})})

	before := mustNew(t, ctor, nil)
	if _, err := before.Evaluate(`caps(name)`); err == nil {
		t.Fatalf("expected unknown filter to fail")
	}

	if _, err := root.RegisterFilter("caps", capsFilter); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	after := mustNew(t, ctor, nil)
	value, err := after.Evaluate(`caps(name)`)
	if err != nil || value != "ADA" {
		t.Fatalf("expected ADA, got %v (%v)", value, err)
	}
}

func TestInstanceFiltersShadowConstructorFilters(t *testing.T) {
	root := NewRoot()
	if _, err := root.RegisterFilter("tag", func(...any) (any, error) { return "root", nil }); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	vm := mustNew(t, root, &Options{Filters: map[string]Filter{
		"tag": func(...any) (any, error) { return "local", nil },
	}})
	value, err := vm.Evaluate(`tag()`)
	if err != nil || value != "local" {
		t.Fatalf("expected local filter, got %v (%v)", value, err)
	}
}

func TestUnknownEngine(t *testing.T) {
	root := NewRoot()
	root.SetExprEngine("lua")
	vm := mustNew(t, root, nil)
	if _, err := vm.Evaluate(`1 + 1`); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	if _, err := vm.Evaluate(""); err == nil {
		t.Fatalf("expected empty expression error")
	}
}

func TestCustomEvaluatorFactory(t *testing.T) {
	var engines []string
	root := NewRoot(WithEvaluatorFactory(func(engine string, registry *FunctionRegistry, cache ProgramCache) (Evaluator, error) {
		engines = append(engines, engine)
		return DefaultEvaluatorFactory(EngineExpr, registry, cache)
	}))
	vm := mustNew(t, root, nil)
	for i := 0; i < 2; i++ {
		if _, err := vm.Evaluate(`1 + 1`); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if len(engines) != 1 || engines[0] != EngineExpr {
		t.Fatalf("expected one cached build, got %v", engines)
	}
}

func TestEvaluatorLogging(t *testing.T) {
	var events []EvaluatorLogEvent
	root := NewRoot(WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))
	vm := mustNew(t, root, nil)
	_, _ = vm.Evaluate(`1 + 1`)
	_, evalErr := vm.Evaluate(`1 +`)

	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].Err != nil || events[0].Engine != EngineExpr || events[0].Component != "<Root>" {
		t.Fatalf("unexpected success event %+v", events[0])
	}
	var typed *EvaluationError
	if !errors.As(evalErr, &typed) || events[1].Err == nil {
		t.Fatalf("expected EvaluationError, got %v", evalErr)
	}
}

func TestZapEvaluatorLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := ZapEvaluatorLogger{Logger: zap.New(core)}
	logger.LogEvaluation(EvaluatorLogEvent{Engine: "expr", Expr: "a"})
	logger.LogEvaluation(EvaluatorLogEvent{Engine: "expr", Expr: "b", Err: errors.New("boom")})

	if logs.FilterMessage("expression evaluated").Len() != 1 {
		t.Fatalf("expected debug entry")
	}
	failed := logs.FilterMessage("expression evaluation failed").All()
	if len(failed) != 1 || failed[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", failed)
	}
}

func TestProgramCacheSharedAcrossEvaluations(t *testing.T) {
	cache := &countingCache{ProgramCache: NewMemoryProgramCache()}
	root := NewRoot(WithProgramCache(cache))
	vm := mustNew(t, root, &Options{Data: staticData(map[string]any{"n": 1})})
	for i := 0; i < 3; i++ {
		if _, err := vm.Evaluate(`n + 1`); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if cache.sets != 1 {
		t.Fatalf("expected one compiled program, got %d", cache.sets)
	}
}

type countingCache struct {
	ProgramCache
	sets int
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.ProgramCache.Set(key, value)
}

func TestProgramCacheSharedAcrossInstanceFilters(t *testing.T) {
	prefixer := func(prefix string) Filter {
		return func(args ...any) (any, error) {
			return prefix + args[0].(string), nil
		}
	}
	for _, engine := range []string{EngineExpr, EngineCEL} {
		t.Run(engine, func(t *testing.T) {
			cache := &countingCache{ProgramCache: NewMemoryProgramCache()}
			root := NewRoot(WithProgramCache(cache))
			root.SetExprEngine(engine)

			for i := 0; i < 50; i++ {
				prefix := "a"
				if i%2 == 1 {
					prefix = "b"
				}
				vm := mustNew(t, root, &Options{
					Data:     staticData(map[string]any{"name": "ada"}),
					Filters:  map[string]Filter{"tag": prefixer(prefix)},
					Computed: map[string]Computed{"tagged": {Expr: `tag(name)`}},
				})
				got, err := vm.Get("tagged")
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if want := prefix + "ada"; got != want {
					t.Fatalf("instance %d: got %v, want %v", i, got, want)
				}
			}
			if cache.sets != 1 {
				t.Fatalf("expected one cached entry for one expression, got %d", cache.sets)
			}
		})
	}
}
