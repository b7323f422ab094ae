package vcore

import "fmt"

// normalizeOptions returns child with props, inject and directives rewritten
// into their canonical forms. child is never modified; when nothing needs
// rewriting it is returned unchanged.
func normalizeOptions(child *Options) (*Options, error) {
	if child.Props == nil && child.Inject == nil && child.Directives == nil {
		return child, nil
	}

	props, err := normalizeProps(child.Props)
	if err != nil {
		return nil, err
	}
	inject, err := normalizeInject(child.Inject)
	if err != nil {
		return nil, err
	}
	directives, err := normalizeDirectives(child.Directives)
	if err != nil {
		return nil, err
	}

	if sameValue(props, child.Props) && sameValue(inject, child.Inject) && sameValue(directives, child.Directives) {
		return child, nil
	}

	out := *child
	out.ctorCache = nil
	out.Props = props
	out.Inject = inject
	out.Directives = directives
	return &out, nil
}

// normalizeProps camelizes kebab-case prop names. Two spellings of one
// prop are rejected.
func normalizeProps(props map[string]Prop) (map[string]Prop, error) {
	if props == nil {
		return nil, nil
	}
	changed := false
	for name := range props {
		if name == "" {
			return nil, fmt.Errorf("%w: props must not contain an empty name", ErrInvalidOption)
		}
		if camelize(name) != name {
			changed = true
		}
	}
	if !changed {
		return props, nil
	}
	out := make(map[string]Prop, len(props))
	for name, prop := range props {
		key := camelize(name)
		if key != name {
			if _, clash := props[key]; clash {
				return nil, fmt.Errorf("%w: props %q and %q name the same prop", ErrInvalidOption, name, key)
			}
		}
		out[key] = prop
	}
	return out, nil
}

// normalizeInject defaults From to the local key.
func normalizeInject(inject map[string]Inject) (map[string]Inject, error) {
	if inject == nil {
		return nil, nil
	}
	changed := false
	for key, entry := range inject {
		if key == "" {
			return nil, fmt.Errorf("%w: inject must not contain an empty key", ErrInvalidOption)
		}
		if entry.From == "" {
			changed = true
		}
	}
	if !changed {
		return inject, nil
	}
	out := make(map[string]Inject, len(inject))
	for key, entry := range inject {
		if entry.From == "" {
			entry.From = key
		}
		out[key] = entry
	}
	return out, nil
}

// normalizeDirectives expands the Fn shorthand into Bind and Update.
func normalizeDirectives(directives map[string]*Directive) (map[string]*Directive, error) {
	if directives == nil {
		return nil, nil
	}
	changed := false
	for name, def := range directives {
		if def == nil {
			return nil, fmt.Errorf("%w: directive %q is nil", ErrInvalidOption, name)
		}
		if def.Fn != nil {
			changed = true
		}
	}
	if !changed {
		return directives, nil
	}
	out := make(map[string]*Directive, len(directives))
	for name, def := range directives {
		if def.Fn != nil {
			def = &Directive{Bind: def.Fn, Update: def.Fn}
		}
		out[name] = def
	}
	return out, nil
}
