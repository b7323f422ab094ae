package vcore

import (
	"fmt"

	"github.com/goliatone/go-vcore/pkg/activity"
)

// ResolveOptions returns the effective options of c, re-deriving them only
// when an ancestor's options changed identity since the last resolution.
// Repeated calls without intervening mutation return the same pointer.
func (c *Constructor) ResolveOptions() (*Options, error) {
	if c.super == nil {
		return c.options, nil
	}
	superOptions, err := c.super.ResolveOptions()
	if err != nil {
		return nil, err
	}
	if superOptions == c.superOptions {
		return c.options, nil
	}

	extendOptions := c.extendOptions
	if modified := c.modifiedOptions(); modified.len() > 0 {
		extendOptions = extendOptions.clone()
		for _, key := range modified.keys {
			extendOptions.setField(key, modified.values[key])
			switch key {
			case keyData:
				extendOptions.dataToken = c.options.dataToken
			case keyProvide:
				extendOptions.provideToken = c.options.provideToken
			}
		}
	}

	options, err := mergeOptions(c.global, superOptions, extendOptions, nil)
	if err != nil {
		return nil, fmt.Errorf("vcore: resolve options cid=%d: %w", c.cid, err)
	}
	if options.Name != "" {
		options = options.withComponent(options.Name, c)
	}

	c.superOptions = superOptions
	c.extendOptions = extendOptions
	c.options = options

	c.global.emit(activity.BuildComponentEvent(activity.VerbOptionsResolved, activity.ComponentEventInput{
		Component: options.Name,
		CID:       c.cid,
		SuperCID:  c.super.cid,
		SessionID: c.global.sessionID,
	}))
	return options, nil
}

type modifiedFields struct {
	keys   []string
	values map[string]any
}

func (m modifiedFields) len() int {
	return len(m.keys)
}

// modifiedOptions lists the fields of c.options that no longer match the
// sealed snapshot, each passed through dedupe.
func (c *Constructor) modifiedOptions() modifiedFields {
	latest, extended, sealed := c.options, c.extendOptions, c.sealedOptions
	var out modifiedFields
	for _, key := range latest.keys() {
		if sameField(latest, sealed, key) {
			continue
		}
		if out.values == nil {
			out.values = map[string]any{}
		}
		out.keys = append(out.keys, key)
		out.values[key] = dedupe(latest.field(key), extended.field(key), sealed.field(key))
	}
	return out
}

// dedupe keeps the entries of a latest hook or watcher list that either came
// from the extension bag or were absent from the sealed snapshot. Entries
// inherited at seal time are dropped since the re-merge brings them back from
// the super. Watch maps are filtered per key. Any other value is returned as
// latest.
func dedupe(latest, extended, sealed any) any {
	switch list := latest.(type) {
	case []*Hook:
		extendedList, _ := extended.([]*Hook)
		sealedList, _ := sealed.([]*Hook)
		res := make([]*Hook, 0, len(list))
		for _, hook := range list {
			if containsHook(extendedList, hook) || !containsHook(sealedList, hook) {
				res = append(res, hook)
			}
		}
		return res
	case map[string][]*Watcher:
		extendedMap, _ := extended.(map[string][]*Watcher)
		sealedMap, _ := sealed.(map[string][]*Watcher)
		res := make(map[string][]*Watcher, len(list))
		for key, watchers := range list {
			kept := make([]*Watcher, 0, len(watchers))
			for _, w := range watchers {
				if containsWatcher(extendedMap[key], w) || !containsWatcher(sealedMap[key], w) {
					kept = append(kept, w)
				}
			}
			if len(kept) > 0 {
				res[key] = kept
			}
		}
		return res
	}
	return latest
}

func containsWatcher(list []*Watcher, w *Watcher) bool {
	for _, candidate := range list {
		if candidate == w {
			return true
		}
	}
	return false
}

func containsHook(list []*Hook, hook *Hook) bool {
	for _, candidate := range list {
		if candidate == hook {
			return true
		}
	}
	return false
}
