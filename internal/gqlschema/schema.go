// Package gqlschema holds the validated GraphQL schema snapshot shared by
// every component that needs to reason about types: the operation parser
// (tool JSON Schema synthesis), the tree-shaker (SDL description synthesis),
// and the built-in introspect/search/validate tools.
package gqlschema

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/graphql-mcp-bridge/internal/operrors"
)

// Snapshot is an immutable, validated GraphQL schema. A new Snapshot is
// built every time a schema source reports a change; readers never mutate
// one in place, which is what lets the reconciler swap a *Snapshot under a
// read-write lock without readers needing to copy it.
type Snapshot struct {
	Raw    *ast.Schema
	SDL    string
	digest string
}

// Parse validates raw SDL text into a Snapshot. name is used only for error
// messages (typically the schema source's path or URL).
func Parse(name, sdl string) (*Snapshot, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, &operrors.SchemaError{Err: err}
	}
	return &Snapshot{Raw: schema, SDL: sdl, digest: digest(sdl)}, nil
}

// Digest returns a cheap content fingerprint used by schema sources to
// decide whether a re-fetched schema actually changed.
func (s *Snapshot) Digest() string { return s.digest }

func digest(sdl string) string {
	// FNV-1a is enough here: this is a change-detection fingerprint, not a
	// security digest, and avoids pulling in a crypto hash for string diffing.
	var h uint64 = 14695981039346656037
	for i := 0; i < len(sdl); i++ {
		h ^= uint64(sdl[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x", h)
}

// Definition looks up a named type, returning nil if it is not defined
// (including built-in scalars, which gqlparser also tracks).
func (s *Snapshot) Definition(name string) *ast.Definition {
	return s.Raw.Types[name]
}

// RootField finds a field on the Query or Mutation root type by name,
// reporting which operation kind it belongs to.
func (s *Snapshot) RootField(name string) (field *ast.FieldDefinition, opType ast.Operation, ok bool) {
	if s.Raw.Query != nil {
		for _, f := range s.Raw.Query.Fields {
			if f.Name == name {
				return f, ast.Query, true
			}
		}
	}
	if s.Raw.Mutation != nil {
		for _, f := range s.Raw.Mutation.Fields {
			if f.Name == name {
				return f, ast.Mutation, true
			}
		}
	}
	if s.Raw.Subscription != nil {
		for _, f := range s.Raw.Subscription.Fields {
			if f.Name == name {
				return f, ast.Subscription, true
			}
		}
	}
	return nil, "", false
}
