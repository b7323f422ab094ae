package vcore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatJSONSchema represents a JSON Schema object document.
	SchemaFormatJSONSchema SchemaFormat = "jsonschema"
	// SchemaFormatDescriptors represents flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
)

// SchemaDocument holds a generated schema alongside its format. Document is
// JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// FieldDescriptor describes a path and the inferred type.
type FieldDescriptor struct {
	Path string
	Type string
}

var propJSONTypes = map[PropType]string{
	PropString:  "string",
	PropNumber:  "number",
	PropBoolean: "boolean",
	PropArray:   "array",
	PropObject:  "object",
}

// PropsSchema describes the props of the resolved options as a JSON Schema
// object. Props without a declared type take the type of their default.
// Function props have no JSON type and are reported with x-go-type.
func (c *Constructor) PropsSchema() (SchemaDocument, error) {
	options, err := c.ResolveOptions()
	if err != nil {
		return SchemaDocument{}, err
	}

	properties := make(map[string]any, len(options.Props))
	var required []string
	for _, name := range sortedKeys(options.Props) {
		prop := options.Props[name]
		schema, err := propSchema(prop)
		if err != nil {
			return SchemaDocument{}, fmt.Errorf("vcore: props schema %q: %w", name, err)
		}
		properties[name] = schema
		if prop.Required {
			required = append(required, name)
		}
	}

	document := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if options.Name != "" {
		document["title"] = options.Name
	}
	if len(required) > 0 {
		document["required"] = required
	}
	return SchemaDocument{Format: SchemaFormatJSONSchema, Document: document}, nil
}

func propSchema(prop Prop) (map[string]any, error) {
	schema := map[string]any{}
	var types []string
	for _, t := range prop.Type {
		if t == PropFunction {
			schema["x-go-type"] = "func"
			continue
		}
		if jsonType, ok := propJSONTypes[t]; ok {
			types = append(types, jsonType)
		}
	}
	switch len(types) {
	case 0:
		if len(prop.Type) == 0 && prop.Default != nil {
			inferred, err := buildSchema(reflect.ValueOf(prop.Default))
			if err != nil {
				return nil, err
			}
			for key, value := range inferred {
				schema[key] = value
			}
		}
	case 1:
		schema["type"] = types[0]
	default:
		schema["type"] = types
	}
	if prop.Default != nil {
		schema["default"] = prop.Default
	}
	if prop.DefaultFunc != nil {
		schema["x-default-factory"] = true
	}
	return schema, nil
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"type": "null"}, nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return map[string]any{"type": "object", "x-go-type": rv.Type().String()}, nil
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		items := map[string]any{}
		if rv.Len() > 0 {
			first, err := buildSchema(rv.Index(0))
			if err != nil {
				return nil, err
			}
			items = first
		}
		return map[string]any{"type": "array", "items": items}, nil
	default:
		return map[string]any{"type": "string", "format": fmt.Sprintf("go:%s", rv.Type().String())}, nil
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map key type %s unsupported", rv.Type().Key())
	}
	names := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		names = append(names, key.String())
	}
	sort.Strings(names)

	properties := make(map[string]any, len(names))
	for _, name := range names {
		child, err := buildSchema(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}
	return map[string]any{"type": "object", "properties": properties}, nil
}

// DataDescriptors flattens the current data of the instance into dotted
// paths with their Go types.
func (vm *Instance) DataDescriptors() SchemaDocument {
	descriptors := deriveFieldDescriptors(vm.data.Snapshot(), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{Format: SchemaFormatDescriptors, Document: descriptors}
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		var fields []FieldDescriptor
		for _, key := range sortedKeys(typed) {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
