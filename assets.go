package vcore

import "fmt"

// RegisterComponent registers def under id in c's components. A plain
// options bag is turned into a subclass of the root first, named id unless
// it declares a name. The registered definition is returned.
func (c *Constructor) RegisterComponent(id string, def Component) (Component, error) {
	if def == nil || isNilComponent(def) {
		return nil, fmt.Errorf("%w: component %q has no definition", ErrInvalidOption, id)
	}
	g := c.global
	g.validateComponentName(id)

	if opts, ok := def.(*Options); ok {
		ctor, err := g.root.extend(opts, id)
		if err != nil {
			return nil, err
		}
		def = ctor
	}
	c.options = c.options.withComponent(id, def)
	return def, nil
}

// RegisterDirective registers d under id. A directive with only Fn set is
// expanded to Bind and Update.
func (c *Constructor) RegisterDirective(id string, d *Directive) (*Directive, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: directive %q has no definition", ErrInvalidOption, id)
	}
	if d.Fn != nil && d.Bind == nil && d.Update == nil {
		d = &Directive{Bind: d.Fn, Update: d.Fn}
	}
	out := c.options.clone()
	out.Directives = withEntry(c.options.Directives, id, d)
	c.options = out
	return d, nil
}

// RegisterFilter registers fn under id. Filters are also exposed to
// computed expressions as functions.
func (c *Constructor) RegisterFilter(id string, fn Filter) (Filter, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: filter %q has no definition", ErrInvalidOption, id)
	}
	out := c.options.clone()
	out.Filters = withEntry(c.options.Filters, id, fn)
	c.options = out
	return fn, nil
}

// Component returns the component registered under id, looked up as given,
// camelized and capitalized.
func (c *Constructor) Component(id string) (Component, bool) {
	options, err := c.ResolveOptions()
	if err != nil {
		return nil, false
	}
	return resolveAsset(options.Components, id)
}

// Directive returns the directive registered under id.
func (c *Constructor) Directive(id string) (*Directive, bool) {
	options, err := c.ResolveOptions()
	if err != nil {
		return nil, false
	}
	return resolveAsset(options.Directives, id)
}

// Filter returns the filter registered under id.
func (c *Constructor) Filter(id string) (Filter, bool) {
	options, err := c.ResolveOptions()
	if err != nil {
		return nil, false
	}
	return resolveAsset(options.Filters, id)
}

// componentConstructor returns the constructor of a registered definition,
// extending the root for plain bags.
func (c *Constructor) componentConstructor(def Component) (*Constructor, error) {
	switch d := def.(type) {
	case *Constructor:
		return d, nil
	case *Options:
		return c.global.root.Extend(d)
	}
	return nil, fmt.Errorf("%w: unsupported component definition %T", ErrInvalidOption, def)
}

func isNilComponent(def Component) bool {
	switch d := def.(type) {
	case *Options:
		return d == nil
	case *Constructor:
		return d == nil
	}
	return false
}

func withEntry[V any](m map[string]V, key string, value V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}
