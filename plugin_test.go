package vcore

import (
	"errors"
	"testing"

	"github.com/goliatone/go-vcore/pkg/activity"
)

type countingInstaller struct {
	calls int
	root  *Constructor
	args  []any
}

func (c *countingInstaller) Install(root *Constructor, args ...any) error {
	c.calls++
	c.root = root
	c.args = args
	return nil
}

func TestUseInstallerObjectOnce(t *testing.T) {
	root := NewRoot()
	installer := &countingInstaller{}

	if err := root.Use(PluginOf(installer), "first"); err != nil {
		t.Fatalf("use: %v", err)
	}
	if err := root.Use(PluginOf(installer), "second"); err != nil {
		t.Fatalf("second use: %v", err)
	}

	if installer.calls != 1 {
		t.Fatalf("expected install called once, got %d", installer.calls)
	}
	if installer.root != root {
		t.Fatalf("expected root passed as first argument")
	}
	if len(installer.args) != 1 || installer.args[0] != "first" {
		t.Fatalf("expected args of first install, got %v", installer.args)
	}
	if !root.Installed(PluginOf(installer)) {
		t.Fatalf("expected installer reported as installed")
	}
}

func TestUsePluginFuncOncePerPointer(t *testing.T) {
	root := NewRoot()
	calls := 0
	plugin := PluginFunc(func(*Constructor, ...any) error {
		calls++
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := root.Use(plugin); err != nil {
			t.Fatalf("use %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one invocation, got %d", calls)
	}
}

type valueInstaller struct {
	name  string
	calls *int
}

func (v valueInstaller) Install(*Constructor, ...any) error {
	*v.calls++
	return nil
}

func TestUseValueInstallersTrackedByPlugin(t *testing.T) {
	root := NewRoot()
	calls := 0
	first := PluginOf(valueInstaller{name: "x", calls: &calls})
	second := PluginOf(valueInstaller{name: "x", calls: &calls})

	for _, plugin := range []*Plugin{first, second, first} {
		if err := root.Use(plugin); err != nil {
			t.Fatalf("use: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected each equal valued plugin installed once, got %d", calls)
	}
	if !root.Installed(first) || !root.Installed(second) {
		t.Fatalf("expected both plugins installed")
	}
}

func TestUseIsScopedToRoot(t *testing.T) {
	installer := &countingInstaller{}
	plugin := PluginOf(installer)

	first, second := NewRoot(), NewRoot()
	if err := first.Use(plugin); err != nil {
		t.Fatalf("use: %v", err)
	}
	if err := second.Use(plugin); err != nil {
		t.Fatalf("use: %v", err)
	}
	if installer.calls != 2 {
		t.Fatalf("expected one install per root, got %d", installer.calls)
	}
	if installer.root != second {
		t.Fatalf("expected last install on second root")
	}
}

func TestUseFailureIsNotRecorded(t *testing.T) {
	root := NewRoot()
	boom := errors.New("boom")
	attempts := 0
	plugin := PluginFunc(func(*Constructor, ...any) error {
		attempts++
		if attempts == 1 {
			return boom
		}
		return nil
	}).Named("flaky")

	err := root.Use(plugin)
	if !errors.Is(err, boom) {
		t.Fatalf("expected install error, got %v", err)
	}
	if root.Installed(plugin) {
		t.Fatalf("failed plugin must not be recorded")
	}
	if err := root.Use(plugin); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 2 || !root.Installed(plugin) {
		t.Fatalf("expected retry to install, attempts=%d", attempts)
	}
}

func TestUseRejectsNilPlugins(t *testing.T) {
	root := NewRoot()
	var missing *countingInstaller

	cases := []struct {
		name   string
		plugin *Plugin
	}{
		{name: "nil plugin", plugin: nil},
		{name: "nil func", plugin: PluginFunc(nil)},
		{name: "nil installer", plugin: PluginOf(missing)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := root.Use(tc.plugin); !errors.Is(err, ErrNilPlugin) {
				t.Fatalf("expected ErrNilPlugin, got %v", err)
			}
		})
	}
}

func TestPluginName(t *testing.T) {
	if got := PluginOf(&countingInstaller{}).Name(); got != "vcore.countingInstaller" {
		t.Fatalf("unexpected installer name %q", got)
	}
	if got := PluginFunc(func(*Constructor, ...any) error { return nil }).Named("router").Name(); got != "router" {
		t.Fatalf("unexpected explicit name %q", got)
	}
}

func TestUseEmitsPluginInstalled(t *testing.T) {
	capture := &activity.CaptureHook{}
	root := NewRoot(WithActivityHooks(capture))
	plugin := PluginFunc(func(*Constructor, ...any) error { return nil }).Named("store")

	_ = root.Use(plugin)
	_ = root.Use(plugin)

	if len(capture.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(capture.Events))
	}
	event := capture.Events[0]
	if event.Verb != activity.VerbPluginInstalled || event.ObjectID != "store" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Channel != activity.DefaultChannel {
		t.Fatalf("expected default channel, got %q", event.Channel)
	}
}
