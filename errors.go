package vcore

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrNilPlugin       = errors.New("vcore: plugin must not be nil")
	ErrInvalidOption   = errors.New("vcore: invalid option")
	ErrPropValidation  = errors.New("vcore: prop validation failed")
	ErrDestroyed       = errors.New("vcore: instance destroyed")
	ErrUnknownProperty = errors.New("vcore: unknown property")
	ErrNotObserved     = errors.New("vcore: target is not an observed object")
)

// HookError reports a lifecycle hook that failed.
type HookError struct {
	Hook      LifecycleHook
	Component string
	Err       error
}

func (e *HookError) Error() string {
	if e == nil {
		return "<nil>"
	}
	component := e.Component
	if component == "" {
		component = "<Anonymous>"
	}
	return fmt.Sprintf("vcore: %s hook of %s: %v", e.Hook, component, e.Err)
}

func (e *HookError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HandleError routes err to Config.ErrorHandler, falling back to the logger.
// info describes where the error happened, for example "created hook".
func (vm *Instance) HandleError(err error, info string) {
	if err == nil || vm == nil {
		return
	}
	g := vm.global
	if g.config.ErrorHandler != nil {
		g.config.ErrorHandler(err, vm, info)
		return
	}
	g.log().Error("unhandled error",
		zap.String("info", info),
		zap.String("component", formatComponentName(vm)),
		zap.Error(err),
	)
}
