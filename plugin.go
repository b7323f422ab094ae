package vcore

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/goliatone/go-vcore/pkg/activity"
)

// InstallFunc installs a plugin on the constructor passed to Use.
type InstallFunc func(root *Constructor, args ...any) error

// Installer is a plugin object exposing an Install method.
type Installer interface {
	Install(root *Constructor, args ...any) error
}

// Plugin is either a bare install function or an Installer. Build one with
// PluginFunc or PluginOf and keep the pointer: installation is tracked by
// identity.
type Plugin struct {
	name      string
	fn        InstallFunc
	installer Installer
}

// PluginFunc wraps a bare install function.
func PluginFunc(fn InstallFunc) *Plugin {
	return &Plugin{fn: fn}
}

// PluginOf wraps an installer object. Two Plugins wrapping the same
// installer pointer count as one plugin. Value installers are tracked by the
// returned *Plugin.
func PluginOf(installer Installer) *Plugin {
	return &Plugin{installer: installer}
}

// Named sets the name reported in activity events.
func (p *Plugin) Named(name string) *Plugin {
	p.name = name
	return p
}

// Name returns the plugin name, derived from the installer type or the
// install function when none was set.
func (p *Plugin) Name() string {
	if p == nil {
		return ""
	}
	if p.name != "" {
		return p.name
	}
	if p.installer != nil {
		return strings.TrimPrefix(fmt.Sprintf("%T", p.installer), "*")
	}
	if p.fn != nil {
		if fn := runtime.FuncForPC(reflect.ValueOf(p.fn).Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return ""
}

func (p *Plugin) valid() bool {
	return p != nil && (p.fn != nil || !isNilInstaller(p.installer))
}

// key identifies the plugin in the installed set. Installers held by
// reference share a key across Plugins; value installers never match by
// equality, only through the same *Plugin.
func (p *Plugin) key() any {
	if p.installer != nil {
		switch reflect.ValueOf(p.installer).Kind() {
		case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
			return p.installer
		}
	}
	return p
}

func isNilInstaller(installer Installer) bool {
	if installer == nil {
		return true
	}
	v := reflect.ValueOf(installer)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Use installs plugin once per root. Installing an already installed plugin
// is a no-op. Errors returned by the plugin propagate and leave it
// uninstalled, so a later Use retries.
func (c *Constructor) Use(plugin *Plugin, args ...any) error {
	if !plugin.valid() {
		return ErrNilPlugin
	}
	g := c.global
	key := plugin.key()
	if _, installed := g.installed[key]; installed {
		return nil
	}

	var err error
	if plugin.installer != nil {
		err = plugin.installer.Install(c, args...)
	} else {
		err = plugin.fn(c, args...)
	}
	if err != nil {
		return fmt.Errorf("vcore: install plugin %s: %w", plugin.Name(), err)
	}
	g.installed[key] = struct{}{}

	g.emit(activity.BuildComponentEvent(activity.VerbPluginInstalled, activity.ComponentEventInput{
		Plugin:    plugin.Name(),
		CID:       c.cid,
		SessionID: g.sessionID,
	}))
	return nil
}

// Installed reports whether plugin was installed on this root.
func (c *Constructor) Installed(plugin *Plugin) bool {
	if !plugin.valid() {
		return false
	}
	_, ok := c.global.installed[plugin.key()]
	return ok
}
