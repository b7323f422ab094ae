package vcore

import (
	"time"

	"go.uber.org/zap"
)

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine    string
	Expr      string
	Component string
	Duration  time.Duration
	Err       error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// ZapEvaluatorLogger writes evaluations at debug level and failures at warn
// level.
type ZapEvaluatorLogger struct {
	Logger *zap.Logger
}

// LogEvaluation implements EvaluatorLogger.
func (l ZapEvaluatorLogger) LogEvaluation(event EvaluatorLogEvent) {
	logger := l.Logger
	if logger == nil {
		logger = Logger()
	}
	fields := []zap.Field{
		zap.String("engine", event.Engine),
		zap.String("expr", event.Expr),
		zap.String("component", event.Component),
		zap.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		logger.Warn("expression evaluation failed", append(fields, zap.Error(event.Err))...)
		return
	}
	logger.Debug("expression evaluated", fields...)
}
