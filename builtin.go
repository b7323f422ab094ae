package vcore

// builtInComponents returns fresh definitions of the components every root
// registers.
func builtInComponents() map[string]Component {
	return map[string]Component{
		"KeepAlive": keepAliveOptions(),
	}
}

// keepAliveOptions defines the abstract keep-alive wrapper. It renders the
// first component child of its default slot; caching of inactive instances
// belongs to the render collaborator.
func keepAliveOptions() *Options {
	patternTypes := []PropType{PropString, PropArray}
	return &Options{
		Name:     "keep-alive",
		Abstract: true,
		Props: map[string]Prop{
			"include": {Type: patternTypes},
			"exclude": {Type: patternTypes},
			"max":     {Type: []PropType{PropString, PropNumber}},
		},
		Render: func(vm *Instance) (*VNode, error) {
			for _, child := range vm.Slots()["default"] {
				if child != nil && child.ComponentOptions != nil {
					return child, nil
				}
			}
			if slot := vm.Slots()["default"]; len(slot) > 0 {
				return slot[0], nil
			}
			return nil, nil
		},
	}
}
