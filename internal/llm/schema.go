package llm

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

var schemaCache sync.Map // reflect.Type -> string

// SchemaFor renders a JSON schema for t from its `json`, `desc` and
// `validate` struct tags. Fields tagged validate:"oneof=a b" become enums.
func SchemaFor(t reflect.Type) string {
	if s, ok := schemaCache.Load(t); ok {
		return s.(string)
	}
	b, _ := json.MarshalIndent(schemaOf(t, ""), "", "  ")
	s := string(b)
	schemaCache.Store(t, s)
	return s
}

func schemaOf(t reflect.Type, validate string) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	switch t.Kind() {
	case reflect.String:
		out["type"] = "string"
		if enum := oneOf(validate); len(enum) > 0 {
			out["enum"] = enum
		}
	case reflect.Bool:
		out["type"] = "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out["type"] = "integer"
	case reflect.Float32, reflect.Float64:
		out["type"] = "number"
	case reflect.Slice, reflect.Array:
		out["type"] = "array"
		out["items"] = schemaOf(t.Elem(), diveRules(validate))
	case reflect.Map:
		out["type"] = "object"
		out["additionalProperties"] = schemaOf(t.Elem(), "")
	case reflect.Struct:
		props := map[string]any{}
		var required []string
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonName(f)
			if name == "-" {
				continue
			}
			rules := f.Tag.Get("validate")
			p := schemaOf(f.Type, rules)
			if d := f.Tag.Get("desc"); d != "" {
				p["description"] = d
			}
			props[name] = p
			required = append(required, name)
		}
		out["type"] = "object"
		out["properties"] = props
		out["required"] = required
	default:
		out["type"] = "string"
	}
	return out
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func oneOf(rules string) []string {
	for _, r := range strings.Split(rules, ",") {
		if v, ok := strings.CutPrefix(r, "oneof="); ok {
			return strings.Fields(v)
		}
	}
	return nil
}

// diveRules returns the element rules that follow "dive" in a slice tag.
func diveRules(rules string) string {
	_, after, ok := strings.Cut(rules, "dive")
	if !ok {
		return ""
	}
	return strings.TrimPrefix(after, ",")
}
