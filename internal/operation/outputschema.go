package operation

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
)

// errorsItemSchema and extensionsSchema are fixed per spec.md §4.1 step 7:
// only the "data" branch of the response envelope varies per operation.
var errorsItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"message":    map[string]any{"type": "string"},
		"path":       map[string]any{"type": "array", "items": map[string]any{}},
		"extensions": map[string]any{"type": "object"},
	},
	"required": []string{"message"},
}

func envelopeSchema(dataSchema map[string]any) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data":       dataSchema,
			"errors":     map[string]any{"type": "array", "items": errorsItemSchema},
			"extensions": map[string]any{"type": "object"},
		},
	}
}

// buildOutputSchema walks def's selection set against the schema's root
// field return types and synthesizes the JSON Schema for the GraphQL
// response envelope, per spec.md §4.1 step 7. Only enabled when
// Options.EnableOutputSchema is set, since these schemas can be large for
// non-trivial selections (§9 Design Notes).
func buildOutputSchema(def *ast.OperationDefinition, schema *gqlschema.Snapshot) map[string]any {
	rootDef := schema.Raw.Query
	if def.Operation == ast.Mutation {
		rootDef = schema.Raw.Mutation
	}

	dataSchema := objectSelectionSchemaFromRoot(def.SelectionSet, rootDef, schema, map[string]bool{})
	dataSchema["type"] = []any{"object", "null"}
	return envelopeSchema(dataSchema)
}

func objectSelectionSchemaFromRoot(set ast.SelectionSet, rootDef *ast.Definition, schema *gqlschema.Snapshot, visiting map[string]bool) map[string]any {
	properties := map[string]any{}
	required := []string{}

	var walk func(set ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				fieldDef := fieldByName(rootDef, s.Name)
				if fieldDef == nil {
					continue
				}
				alias := s.Alias
				if alias == "" {
					alias = s.Name
				}
				properties[alias] = selectionSchema(s, fieldDef.Type, schema, visiting)
				if fieldDef.Type.NonNull {
					required = append(required, alias)
				}
			case *ast.FragmentSpread:
				if s.Definition != nil {
					walk(s.Definition.SelectionSet)
				}
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	walk(set)

	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func fieldByName(def *ast.Definition, name string) *ast.FieldDefinition {
	if def == nil {
		return nil
	}
	for _, f := range def.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// selectionSchema maps a single selected field's GraphQL return type into a
// JSON Schema fragment, recursing into the field's own selection set for
// object, interface, and union types. Non-null vs nullable mirrors GraphQL;
// unions produce a oneOf across their inline-fragment type conditions.
func selectionSchema(field *ast.Field, t *ast.Type, schema *gqlschema.Snapshot, visiting map[string]bool) map[string]any {
	if t.Elem != nil {
		items := selectionSchema(field, t.Elem, schema, visiting)
		arr := map[string]any{"type": "array", "items": items}
		return nullable(arr, t.NonNull)
	}

	switch t.NamedType {
	case "String", "ID":
		return nullable(map[string]any{"type": "string"}, t.NonNull)
	case "Int", "Float":
		return nullable(map[string]any{"type": "number"}, t.NonNull)
	case "Boolean":
		return nullable(map[string]any{"type": "boolean"}, t.NonNull)
	}

	def := schema.Definition(t.NamedType)
	if def == nil {
		return map[string]any{}
	}

	switch def.Kind {
	case ast.Enum:
		values := make([]any, 0, len(def.EnumValues))
		for _, v := range def.EnumValues {
			values = append(values, v.Name)
		}
		return nullable(map[string]any{"type": "string", "enum": values}, t.NonNull)

	case ast.Union:
		var options []any
		for _, sel := range field.SelectionSet {
			frag, ok := sel.(*ast.InlineFragment)
			if !ok {
				continue
			}
			options = append(options, objectSelectionSchemaFromRoot(frag.SelectionSet, schema.Definition(frag.TypeCondition), schema, visiting))
		}
		return nullable(map[string]any{"oneOf": options}, t.NonNull)

	case ast.Object, ast.Interface:
		if visiting[def.Name] {
			return map[string]any{"type": "object"}
		}
		visiting[def.Name] = true
		defer delete(visiting, def.Name)
		return nullable(objectSelectionSchemaFromRoot(field.SelectionSet, def, schema, visiting), t.NonNull)

	default:
		return map[string]any{}
	}
}

func nullable(schema map[string]any, nonNull bool) map[string]any {
	if nonNull {
		return schema
	}
	return map[string]any{"oneOf": []any{schema, map[string]any{"type": "null"}}}
}
