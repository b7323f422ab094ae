// Package manifest loads component definitions from YAML or JSON documents.
//
// A manifest declares a component's name, props, static data defaults,
// computed expressions, watch-to-method bindings and the registered
// components it uses locally:
//
//	name: todo-item
//	props:
//	  title: {type: String, required: true}
//	  done: Boolean
//	data:
//	  editing: false
//	computed:
//	  label: 'upper(title)'
//	watch:
//	  done: onDone
//	components:
//	  Badge: badge
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goliatone/go-vcore"
	"github.com/goliatone/go-vcore/internal/deep"
	"github.com/goliatone/go-vcore/internal/hydrate"
	"gopkg.in/yaml.v3"
)

var (
	ErrNameRequired = errors.New("manifest: name is required")
	ErrUnknownType  = errors.New("manifest: unknown prop type")
)

// Manifest is the decoded form of a component document.
type Manifest struct {
	Name       string              `json:"name"`
	Props      map[string]PropSpec `json:"props,omitempty"`
	Data       map[string]any      `json:"data,omitempty"`
	Computed   map[string]string   `json:"computed,omitempty"`
	Watch      map[string]string   `json:"watch,omitempty"`
	Components map[string]string   `json:"components,omitempty"`
}

// PropSpec declares a prop. In documents a prop may also be written as a
// bare type name or a list of type names.
type PropSpec struct {
	Type     []string `json:"type,omitempty"`
	Required bool     `json:"required,omitempty"`
	Default  any      `json:"default,omitempty"`
}

// Load decodes a YAML or JSON manifest. Documents starting with "{" are
// read as JSON.
func Load(data []byte) (Manifest, error) {
	return load(hydrate.Context{Source: "<inline>"}, data)
}

// LoadFile reads and decodes the manifest at path.
func LoadFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return load(hydrate.Context{Source: filepath.Base(path)}, data)
}

func load(ctx hydrate.Context, data []byte) (Manifest, error) {
	payload := map[string]any{}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		ctx.Format = "json"
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return Manifest{}, fmt.Errorf("manifest: parse %s: %w", ctx.Source, err)
		}
	} else {
		ctx.Format = "yaml"
		if err := yaml.Unmarshal(trimmed, &payload); err != nil {
			return Manifest{}, fmt.Errorf("manifest: parse %s: %w", ctx.Source, err)
		}
	}
	return decoder.Decode(ctx, payload)
}

var decoder = hydrate.NewDecoder(
	hydrate.WithPreHook[Manifest](expandPropShorthand),
	hydrate.WithPostHook[Manifest](validateManifest),
	hydrate.WithDisallowUnknownFields[Manifest](),
)

// expandPropShorthand rewrites "title: String" and "tags: [Array, String]"
// into full prop declarations.
func expandPropShorthand(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	props, ok := payload["props"].(map[string]any)
	if !ok {
		return payload, nil
	}
	for name, raw := range props {
		switch typed := raw.(type) {
		case string:
			props[name] = map[string]any{"type": []any{typed}}
		case []any:
			props[name] = map[string]any{"type": typed}
		case map[string]any:
			if t, ok := typed["type"].(string); ok {
				typed["type"] = []any{t}
			}
		case nil:
			props[name] = map[string]any{}
		}
	}
	return payload, nil
}

func validateManifest(_ hydrate.Context, m *Manifest) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return ErrNameRequired
	}
	for name, prop := range m.Props {
		for i, t := range prop.Type {
			normalized, ok := propTypes[strings.ToLower(strings.TrimSpace(t))]
			if !ok {
				return fmt.Errorf("%w %q for prop %q", ErrUnknownType, t, name)
			}
			prop.Type[i] = string(normalized)
		}
	}
	return nil
}

var propTypes = map[string]vcore.PropType{
	"string":   vcore.PropString,
	"number":   vcore.PropNumber,
	"boolean":  vcore.PropBoolean,
	"array":    vcore.PropArray,
	"object":   vcore.PropObject,
	"function": vcore.PropFunction,
}

// Options builds the component options described by the manifest. Component
// references are looked up on root; a nil root is only valid when the
// manifest references no components.
func (m Manifest) Options(root *vcore.Constructor) (*vcore.Options, error) {
	options := &vcore.Options{Name: m.Name}

	if len(m.Props) > 0 {
		options.Props = make(map[string]vcore.Prop, len(m.Props))
		for name, spec := range m.Props {
			options.Props[name] = buildProp(spec)
		}
	}
	if m.Data != nil {
		data := m.Data
		options.Data = func(*vcore.Instance) (map[string]any, error) {
			return deep.Clone(data), nil
		}
	}
	if len(m.Computed) > 0 {
		options.Computed = make(map[string]vcore.Computed, len(m.Computed))
		for name, expr := range m.Computed {
			options.Computed[name] = vcore.Computed{Expr: expr}
		}
	}
	if len(m.Watch) > 0 {
		options.Watch = make(map[string][]*vcore.Watcher, len(m.Watch))
		for key, method := range m.Watch {
			options.Watch[key] = []*vcore.Watcher{{Method: method}}
		}
	}
	if len(m.Components) > 0 {
		if root == nil {
			return nil, fmt.Errorf("manifest: %s references components but no root was given", m.Name)
		}
		options.Components = make(map[string]vcore.Component, len(m.Components))
		for alias, id := range m.Components {
			def, ok := root.Component(id)
			if !ok {
				return nil, fmt.Errorf("manifest: %s references unknown component %q", m.Name, id)
			}
			options.Components[alias] = def
		}
	}
	return options, nil
}

func buildProp(spec PropSpec) vcore.Prop {
	prop := vcore.Prop{Required: spec.Required}
	for _, t := range spec.Type {
		prop.Type = append(prop.Type, vcore.PropType(t))
	}
	if spec.Default == nil {
		return prop
	}
	switch reflect.ValueOf(spec.Default).Kind() {
	case reflect.Map, reflect.Slice:
		def := spec.Default
		prop.DefaultFunc = func(*vcore.Instance) any {
			return deep.Clone(def)
		}
	default:
		prop.Default = spec.Default
	}
	return prop
}

// Register loads the manifest in data and registers it on root under its
// name. It returns the subclass created for it.
func Register(root *vcore.Constructor, data []byte) (*vcore.Constructor, error) {
	m, err := Load(data)
	if err != nil {
		return nil, err
	}
	options, err := m.Options(root)
	if err != nil {
		return nil, err
	}
	def, err := root.RegisterComponent(m.Name, options)
	if err != nil {
		return nil, err
	}
	ctor, ok := def.(*vcore.Constructor)
	if !ok {
		return nil, fmt.Errorf("manifest: %s did not register as a constructor", m.Name)
	}
	return ctor, nil
}
