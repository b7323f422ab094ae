package vcore

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger. It is a no-op logger unless SetLogger was
// called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger used by roots without their own.
// Call it before creating roots.
func SetLogger(l *zap.Logger) {
	logger = l
}

func (g *globalState) log() *zap.Logger {
	if g != nil && g.logger != nil {
		return g.logger
	}
	return Logger()
}

// warn reports a development diagnostic. Execution always continues.
func (g *globalState) warn(msg string, vm *Instance) {
	if g == nil || g.config.Production || g.config.Silent {
		return
	}
	trace := componentTrace(vm)
	if g.config.WarnHandler != nil {
		g.config.WarnHandler(msg, vm, trace)
		return
	}
	fields := []zap.Field{zap.String("component", formatComponentName(vm))}
	if trace != "" {
		fields = append(fields, zap.String("trace", trace))
	}
	g.log().Warn(msg, fields...)
}

func (g *globalState) warnf(vm *Instance, format string, args ...any) {
	if g == nil || g.config.Production || g.config.Silent {
		return
	}
	g.warn(fmt.Sprintf(format, args...), vm)
}

// formatComponentName renders "<Root>" for root instances, "<Name>" for named
// components and "<Anonymous>" otherwise.
func formatComponentName(vm *Instance) string {
	if vm == nil {
		return ""
	}
	if vm.root == vm {
		return "<Root>"
	}
	name := ""
	if vm.options != nil {
		name = vm.options.Name
		if name == "" {
			name = vm.options.componentTag
		}
	}
	if name == "" {
		return "<Anonymous>"
	}
	return "<" + classify(name) + ">"
}

func componentTrace(vm *Instance) string {
	if vm == nil || vm.parent == nil {
		return ""
	}
	var parts []string
	for cur := vm; cur != nil; cur = cur.parent {
		parts = append(parts, formatComponentName(cur))
	}
	return "found in " + strings.Join(parts, " <- ")
}

// classify turns kebab-case or snake_case names into PascalCase.
func classify(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "")
}

// camelize turns kebab-case into camelCase.
func camelize(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	parts := strings.Split(name, "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

var componentNamePattern = regexp.MustCompile(`^[a-zA-Z][\w-]*$`)

var reservedTags = map[string]struct{}{
	"slot":      {},
	"component": {},
}

// validateComponentName warns about names the render layer cannot resolve.
func (g *globalState) validateComponentName(name string) {
	if g == nil || g.config.Production {
		return
	}
	if !componentNamePattern.MatchString(name) {
		g.warnf(nil, "Invalid component name: %q. Component names can only contain alphanumeric characters and the hyphen, and must start with a letter.", name)
		return
	}
	if _, reserved := reservedTags[strings.ToLower(name)]; reserved || isIgnoredElement(g.config.IgnoredElements, name) {
		g.warnf(nil, "Do not use built-in or reserved elements as component id: %s", name)
	}
}

func isIgnoredElement(ignored []string, name string) bool {
	for _, tag := range ignored {
		if strings.EqualFold(tag, name) {
			return true
		}
	}
	return false
}
