package operation

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
)

// CustomScalarMap supplies a JSON Schema fragment for scalar types the
// bridge does not know how to represent structurally (anything other than
// the built-in String/Int/Float/Boolean/ID). A scalar with no entry here
// falls back to an unconstrained `{}` schema accepting any JSON value.
type CustomScalarMap map[string]map[string]any

func schemaForVariables(defs ast.VariableDefinitionList, schema *gqlschema.Snapshot, scalars CustomScalarMap) map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, v := range defs {
		properties[v.Variable] = typeToSchema(v.Type, schema, scalars, map[string]bool{})
		if v.Type.NonNull && v.DefaultValue == nil {
			required = append(required, v.Variable)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// typeToSchema maps a GraphQL type reference to a JSON Schema fragment.
// visiting guards against infinite recursion on self-referential input
// types by degrading to an opaque object on repeat.
func typeToSchema(t *ast.Type, schema *gqlschema.Snapshot, scalars CustomScalarMap, visiting map[string]bool) map[string]any {
	if t.Elem != nil {
		items := typeToSchema(t.Elem, schema, scalars, visiting)
		arraySchema := map[string]any{
			"type": "array",
		}
		if t.NonNull {
			arraySchema["items"] = items
		} else {
			arraySchema["oneOf"] = []any{
				map[string]any{"items": items, "type": "array"},
				map[string]any{"type": "null"},
			}
		}
		return arraySchema
	}

	name := t.NamedType
	switch name {
	case "String", "ID":
		return map[string]any{"type": "string"}
	case "Int", "Float":
		return map[string]any{"type": "number"}
	case "Boolean":
		return map[string]any{"type": "boolean"}
	}

	def := schema.Definition(name)
	if def == nil {
		return map[string]any{}
	}

	switch def.Kind {
	case ast.Enum:
		values := make([]any, 0, len(def.EnumValues))
		descLines := ""
		for _, v := range def.EnumValues {
			values = append(values, v.Name)
			if v.Description != "" {
				descLines += v.Name + ": " + v.Description + "\n"
			}
		}
		out := map[string]any{
			"type": "string",
			"enum": values,
		}
		if descLines != "" {
			out["description"] = descLines
		}
		return out

	case ast.InputObject:
		if visiting[name] {
			return map[string]any{"type": "object"}
		}
		visiting[name] = true
		defer delete(visiting, name)

		properties := map[string]any{}
		required := []string{}
		for _, field := range def.Fields {
			properties[field.Name] = typeToSchema(field.Type, schema, scalars, visiting)
			if field.Type.NonNull && field.DefaultValue == nil {
				required = append(required, field.Name)
			}
		}
		out := map[string]any{
			"type":                 "object",
			"properties":           properties,
			"additionalProperties": false,
		}
		if len(required) > 0 {
			out["required"] = required
		}
		if def.Description != "" {
			out["description"] = def.Description
		}
		return out

	case ast.Scalar:
		if custom, ok := scalars[name]; ok {
			merged := map[string]any{}
			for k, v := range custom {
				merged[k] = v
			}
			if _, hasDesc := merged["description"]; !hasDesc && def.Description != "" {
				merged["description"] = def.Description
			}
			return merged
		}
		return map[string]any{}

	default:
		// Object/Interface/Union types are not representable as tool input;
		// callers only ever reach this branch for misuse of an output type
		// as a variable type, which schema validation should already reject.
		return map[string]any{}
	}
}
