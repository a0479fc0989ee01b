package gqlschema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// ShakeOptions controls how deep the walk descends into types that are
// reached only through other objects' fields ("intermediate" types) versus
// types reached directly off an operation's own root field or argument
// ("leaf" types, in the sense that spec.md's search tool treats them as the
// result/argument shape a caller cares about, not a waypoint).
type ShakeOptions struct {
	// LeafDepth bounds recursion into types reached as arguments/return
	// values directly off the root selection. Zero means "only the named
	// type itself, no nested object expansion."
	LeafDepth int
	// IntermediateDepth bounds recursion into types reached transitively
	// through another object type's fields. Defaults to LeafDepth when zero.
	IntermediateDepth int
}

// Shake walks the schema starting at rootTypeNames and returns the SDL of
// every type definition reachable within the configured depth, in a stable
// order, skipping introspection (`__Type` etc.) and built-in scalar types.
// This backs the synthesized schema-description half of C1's tool
// descriptions and the `search`/`introspect` built-in tools.
func (s *Snapshot) Shake(rootTypeNames []string, opts ShakeOptions) string {
	order := s.shakeOrder(rootTypeNames, opts)
	return s.renderSDL(order)
}

// ShakePath is Shake with one difference: only the last element of path is
// treated as a leaf. Every earlier element is an intermediate waypoint, even
// though it is itself a walk root, which is what lets the `search` built-in
// tool (§4.6/§4.10) tree-shake a resolved root-to-type path with the
// intermediate hops kept shallow and only the final type expanded fully.
func (s *Snapshot) ShakePath(path []string, opts ShakeOptions) string {
	if len(path) == 0 {
		return ""
	}
	leafSet := map[string]bool{path[len(path)-1]: true}
	order := s.shakeOrderWithLeaves(path, leafSet, opts)
	return s.renderSDL(order)
}

func (s *Snapshot) shakeOrder(rootTypeNames []string, opts ShakeOptions) []string {
	leafSet := map[string]bool{}
	for _, name := range rootTypeNames {
		leafSet[name] = true
	}
	return s.shakeOrderWithLeaves(rootTypeNames, leafSet, opts)
}

func (s *Snapshot) shakeOrderWithLeaves(rootTypeNames []string, leafSet map[string]bool, opts ShakeOptions) []string {
	if opts.IntermediateDepth == 0 {
		opts.IntermediateDepth = opts.LeafDepth
	}

	seen := map[string]bool{}
	order := []string{}

	var walk func(name string, depth int, isLeaf bool)
	walk = func(name string, depth int, isLeaf bool) {
		def := s.Raw.Types[name]
		if def == nil || seen[name] || isBuiltin(name) {
			return
		}
		seen[name] = true
		order = append(order, name)

		limit := opts.IntermediateDepth
		if isLeaf {
			limit = opts.LeafDepth
		}
		if depth >= limit {
			return
		}

		for _, field := range def.Fields {
			walk(namedTypeOf(field.Type), depth+1, false)
			for _, arg := range field.Arguments {
				walk(namedTypeOf(arg.Type), depth+1, false)
			}
		}
		for _, iface := range def.Interfaces {
			walk(iface, depth+1, false)
		}
		for _, t := range def.Types {
			walk(t, depth+1, false)
		}
	}

	for _, name := range rootTypeNames {
		walk(name, 0, leafSet[name])
	}

	sort.Strings(order)
	return order
}

func (s *Snapshot) renderSDL(order []string) string {
	var sdl strings.Builder
	for _, name := range order {
		sdl.WriteString(s.typeSDL(s.Raw.Types[name]))
		sdl.WriteString("\n\n")
	}
	return strings.TrimSpace(sdl.String())
}

// RootPaths walks the Query root type (and Mutation, when includeMutation is
// true) depth-first and records, for every object/interface/union/enum type
// reachable from a root field, the first-discovered path of type names from
// the root type down to it. This backs the search index's per-type
// root_path (§4.10): a search hit names a type plus the first route the
// walk found from a root type to it (not necessarily the shortest), which
// search then tree-shakes.
func (s *Snapshot) RootPaths(includeMutation bool) map[string][]string {
	paths := map[string][]string{}
	visited := map[string]bool{}

	var walk func(def *ast.Definition, path []string)
	walk = func(def *ast.Definition, path []string) {
		if def == nil || visited[def.Name] || isBuiltin(def.Name) {
			return
		}
		visited[def.Name] = true

		switch def.Kind {
		case ast.Object, ast.Interface, ast.Union, ast.Enum, ast.InputObject:
			if _, ok := paths[def.Name]; !ok {
				paths[def.Name] = append([]string{}, path...)
			}
		}

		for _, field := range def.Fields {
			childName := namedTypeOf(field.Type)
			child := s.Raw.Types[childName]
			if child == nil {
				continue
			}
			walk(child, append(append([]string{}, path...), childName))
		}
		for _, t := range def.Types {
			walk(s.Raw.Types[t], append(append([]string{}, path...), t))
		}
	}

	if s.Raw.Query != nil {
		walk(s.Raw.Query, []string{s.Raw.Query.Name})
	}
	if includeMutation && s.Raw.Mutation != nil {
		walk(s.Raw.Mutation, []string{s.Raw.Mutation.Name})
	}

	return paths
}

func namedTypeOf(t *ast.Type) string {
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

func isBuiltin(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID",
		"__Schema", "__Type", "__Field", "__InputValue", "__EnumValue",
		"__TypeKind", "__Directive", "__DirectiveLocation":
		return true
	}
	return strings.HasPrefix(name, "__")
}

// typeSDL renders a single type definition, mirroring the style of the
// hand-rolled SDL printer the teacher server used for its introspection
// schema, adapted to walk gqlparser's *ast.Definition directly.
func (s *Snapshot) typeSDL(def *ast.Definition) string {
	var b strings.Builder
	if def.Description != "" {
		fmt.Fprintf(&b, "\"\"\"%s\"\"\"\n", def.Description)
	}
	switch def.Kind {
	case ast.Object:
		fmt.Fprintf(&b, "type %s", def.Name)
		if len(def.Interfaces) > 0 {
			fmt.Fprintf(&b, " implements %s", strings.Join(def.Interfaces, " & "))
		}
		b.WriteString(" {\n")
		for _, f := range def.Fields {
			writeFieldSDL(&b, f)
		}
		b.WriteString("}")
	case ast.Interface:
		fmt.Fprintf(&b, "interface %s {\n", def.Name)
		for _, f := range def.Fields {
			writeFieldSDL(&b, f)
		}
		b.WriteString("}")
	case ast.Union:
		fmt.Fprintf(&b, "union %s = %s", def.Name, strings.Join(def.Types, " | "))
	case ast.Enum:
		fmt.Fprintf(&b, "enum %s {\n", def.Name)
		for _, v := range def.EnumValues {
			if v.Description != "" {
				fmt.Fprintf(&b, "  \"%s\"\n", v.Description)
			}
			fmt.Fprintf(&b, "  %s\n", v.Name)
		}
		b.WriteString("}")
	case ast.InputObject:
		fmt.Fprintf(&b, "input %s {\n", def.Name)
		for _, f := range def.Fields {
			writeFieldSDL(&b, f)
		}
		b.WriteString("}")
	case ast.Scalar:
		fmt.Fprintf(&b, "scalar %s", def.Name)
	}
	return b.String()
}

func writeFieldSDL(b *strings.Builder, f *ast.FieldDefinition) {
	if f.Description != "" {
		fmt.Fprintf(b, "  \"%s\"\n", f.Description)
	}
	fmt.Fprintf(b, "  %s", f.Name)
	if len(f.Arguments) > 0 {
		b.WriteString("(")
		for i, a := range f.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: %s", a.Name, typeRefSDL(a.Type))
			if a.DefaultValue != nil {
				fmt.Fprintf(b, " = %s", a.DefaultValue.Raw)
			}
		}
		b.WriteString(")")
	}
	fmt.Fprintf(b, ": %s\n", typeRefSDL(f.Type))
}

func typeRefSDL(t *ast.Type) string {
	if t == nil {
		return "String"
	}
	if t.NonNull {
		return typeRefSDL(&ast.Type{NamedType: t.NamedType, Elem: t.Elem}) + "!"
	}
	if t.Elem != nil {
		return "[" + typeRefSDL(t.Elem) + "]"
	}
	return t.NamedType
}
