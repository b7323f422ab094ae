package vcore

import (
	"fmt"
	"strings"
	"unicode"
)

// Listener handles an instance event.
type Listener func(args ...any) error

// RenderFunc produces the virtual tree of an instance.
type RenderFunc func(vm *Instance) (*VNode, error)

// VNodeData carries the attributes a parent passes to a child node.
type VNodeData struct {
	Key   any
	Ref   string
	Slot  string
	Attrs map[string]any
	On    map[string][]Listener
}

// ComponentVNodeOptions describes a component placeholder node.
type ComponentVNodeOptions struct {
	Ctor      *Constructor
	PropsData map[string]any
	Listeners map[string][]Listener
	Children  []*VNode
	Tag       string
}

// VNode is the minimal virtual node exchanged with the render collaborator.
type VNode struct {
	Tag       string
	Data      *VNodeData
	Children  []*VNode
	Text      string
	IsComment bool

	// Context is the instance whose render produced the node.
	Context *Instance
	Parent  *VNode

	ComponentOptions  *ComponentVNodeOptions
	ComponentInstance *Instance
}

// H builds an element node.
func H(tag string, data *VNodeData, children ...*VNode) *VNode {
	return &VNode{Tag: tag, Data: data, Children: children}
}

// Text builds a text node.
func Text(text string) *VNode {
	return &VNode{Text: text}
}

func emptyVNode(context *Instance) *VNode {
	return &VNode{IsComment: true, Context: context}
}

func (n *VNode) isWhitespace() bool {
	if n == nil {
		return true
	}
	if n.IsComment {
		return true
	}
	return n.Tag == "" && strings.TrimSpace(n.Text) == ""
}

// initRender resolves slots and the $attrs / $listeners pass-through.
func (vm *Instance) initRender() {
	options := vm.options
	vm.vnode = nil
	var renderContext *Instance
	if options.parentVnode != nil {
		renderContext = options.parentVnode.Context
		if data := options.parentVnode.Data; data != nil && data.Attrs != nil {
			vm.attrs = make(map[string]any, len(data.Attrs))
			for key, value := range data.Attrs {
				vm.attrs[key] = value
			}
		}
	}
	vm.slots = resolveSlots(options.renderChildren, renderContext)
	vm.listeners = options.parentListeners
}

// resolveSlots groups children by their slot attribute. Named slots only
// apply to nodes rendered in context; the rest fall into "default". Slots
// made only of whitespace are dropped.
func resolveSlots(children []*VNode, context *Instance) map[string][]*VNode {
	slots := map[string][]*VNode{}
	for _, child := range children {
		if child == nil {
			continue
		}
		data := child.Data
		if child.Context == context && data != nil && data.Slot != "" {
			name := data.Slot
			if child.Tag == "template" {
				slots[name] = append(slots[name], child.Children...)
			} else {
				slots[name] = append(slots[name], child)
			}
			continue
		}
		slots["default"] = append(slots["default"], child)
	}
	for name, nodes := range slots {
		whitespace := true
		for _, node := range nodes {
			if !node.isWhitespace() {
				whitespace = false
				break
			}
		}
		if whitespace {
			delete(slots, name)
		}
	}
	return slots
}

// Render calls the render function of the instance and records the result
// as its current tree. Instances without a render function render an empty
// comment node.
func (vm *Instance) Render() (*VNode, error) {
	render := vm.options.Render
	if render == nil {
		vm.vnode = emptyVNode(vm)
		return vm.vnode, nil
	}
	vnode, err := render(vm)
	if err != nil {
		return nil, fmt.Errorf("vcore: render %s: %w", formatComponentName(vm), err)
	}
	if vnode == nil {
		vnode = emptyVNode(vm)
	}
	vnode.Parent = vm.options.parentVnode
	vm.vnode = vnode
	return vnode, nil
}

// CreateComponent builds a placeholder node for the component registered
// under tag. Attributes matching declared props become props data; the rest
// stay as attributes.
func (vm *Instance) CreateComponent(tag string, data *VNodeData, children ...*VNode) (*VNode, error) {
	def, ok := resolveAsset(vm.options.Components, tag)
	if !ok {
		vm.global.warnf(vm, "Unknown custom element: <%s> - did you register the component correctly?", tag)
		return nil, fmt.Errorf("%w: unknown component %q", ErrInvalidOption, tag)
	}
	ctor, err := vm.global.root.componentConstructor(def)
	if err != nil {
		return nil, err
	}
	resolved, err := ctor.ResolveOptions()
	if err != nil {
		return nil, err
	}

	var attrs map[string]any
	var listeners map[string][]Listener
	if data != nil {
		listeners = data.On
		if data.Attrs != nil {
			attrs = make(map[string]any, len(data.Attrs))
			for key, value := range data.Attrs {
				attrs[key] = value
			}
		}
	}
	propsData := extractProps(resolved.Props, attrs)

	nodeData := &VNodeData{}
	if data != nil {
		*nodeData = *data
	}
	nodeData.Attrs = attrs
	nodeData.On = nil

	name := resolved.Name
	if name == "" {
		name = tag
	}
	for _, child := range children {
		if child != nil && child.Context == nil {
			child.Context = vm
		}
	}
	return &VNode{
		Tag:     fmt.Sprintf("vcore-component-%d-%s", ctor.cid, name),
		Data:    nodeData,
		Context: vm,
		ComponentOptions: &ComponentVNodeOptions{
			Ctor:      ctor,
			PropsData: propsData,
			Listeners: listeners,
			Children:  children,
			Tag:       tag,
		},
	}, nil
}

// extractProps moves attributes matching declared props, in camelCase or
// kebab-case, out of attrs.
func extractProps(props map[string]Prop, attrs map[string]any) map[string]any {
	if len(props) == 0 || len(attrs) == 0 {
		return nil
	}
	out := map[string]any{}
	for key := range props {
		if value, ok := attrs[key]; ok {
			out[key] = value
			delete(attrs, key)
			continue
		}
		alt := hyphenate(key)
		if value, ok := attrs[alt]; ok {
			out[key] = value
			delete(attrs, alt)
		}
	}
	return out
}

// resolveAsset looks id up as given, camelized, then capitalized.
func resolveAsset[V any](assets map[string]V, id string) (V, bool) {
	if value, ok := assets[id]; ok {
		return value, true
	}
	camel := camelize(id)
	if value, ok := assets[camel]; ok {
		return value, true
	}
	if camel != "" {
		pascal := strings.ToUpper(camel[:1]) + camel[1:]
		if value, ok := assets[pascal]; ok {
			return value, true
		}
	}
	var zero V
	return zero, false
}

// hyphenate turns camelCase into kebab-case.
func hyphenate(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
