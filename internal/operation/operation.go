// Package operation turns a GraphQL operation document into an MCP tool: a
// name, a human-readable description, and a JSON Schema describing the
// operation's variables as tool input. This is component C1 of the bridge.
package operation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/operrors"
)

// MutationMode controls whether mutation operations are exposed as tools at
// all, mirroring the three-way Rust MutationMode enum.
type MutationMode int

const (
	MutationModeNone MutationMode = iota
	MutationModeExplicit
	MutationModeAll
)

// Options bundles the per-deployment flags FromDocument consults beyond the
// schema itself: the mutation gate, the two description-synthesis
// suppression flags, and whether to build an output schema at all.
type Options struct {
	Mode                     MutationMode
	DisableTypeDescription   bool
	DisableSchemaDescription bool
	EnableOutputSchema       bool
}

// RawOperation is an operation as reported by an operation source, before
// it has been checked against a schema. A RawOperation carries either
// SourceText (a literal GraphQL document) or a PersistedQueryID (a
// pre-registered hash the GraphQL endpoint will resolve), never both.
type RawOperation struct {
	SourcePath       string
	SourceText       string
	PersistedQueryID string
	// ExplicitDescription overrides any description synthesized from the
	// document's comments or schema, when set by a manifest entry.
	ExplicitDescription string
}

// Operation is a RawOperation that has been parsed, validated against a
// schema, and had its MCP tool shape (description + JSON Schema) computed.
type Operation struct {
	Name             string
	OperationType    ast.Operation
	SourcePath       string
	SourceText       string
	PersistedQueryID string
	Document         *ast.QueryDocument
	Definition       *ast.OperationDefinition
	Description      string
	InputSchema      map[string]any
	OutputSchema     map[string]any
	charLength       int
}

// commentLine matches a single `#`-comment line; extractLeadingComment uses
// it to collect the contiguous run of such lines immediately preceding an
// operation definition, the same heuristic the original server used to pull
// a docstring out of raw GraphQL source text that gqlparser's AST otherwise
// discards.
var commentLine = regexp.MustCompile(`(?m)^\s*#\s?(.*)$`)

// FromDocument parses sourceText, requires exactly one named operation in
// it, validates it against schema, and derives the operation's tool shape.
// opts.Mode gates whether a mutation operation is accepted at all.
func FromDocument(raw RawOperation, schema *gqlschema.Snapshot, customScalars CustomScalarMap, opts Options) (*Operation, error) {
	if raw.SourceText == "" {
		return nil, fmt.Errorf("operation %s: persisted-query-only operations cannot be materialized without a schema-side lookup", raw.SourcePath)
	}

	doc, err := gqlparser.LoadQuery(schema.Raw, raw.SourceText)
	if err != nil {
		if gqlErrs, ok := err.(gqlerror.List); ok {
			return nil, &operrors.DocumentError{SourcePath: raw.SourcePath, Err: gqlErrs}
		}
		return nil, &operrors.DocumentError{SourcePath: raw.SourcePath, Err: err}
	}

	named := make([]*ast.OperationDefinition, 0, len(doc.Operations))
	for _, op := range doc.Operations {
		if op.Name != "" {
			named = append(named, op)
		}
	}
	switch {
	case len(named) == 0:
		return nil, &operrors.MissingNameError{SourcePath: raw.SourcePath, Operation: raw.SourceText}
	case len(named) > 1:
		return nil, &operrors.TooManyOperationsError{SourcePath: raw.SourcePath, Count: len(named)}
	}
	def := named[0]

	if def.Operation == ast.Subscription {
		return nil, &operrors.SubscriptionNotAllowedError{SourcePath: raw.SourcePath, Operation: def.Name}
	}

	if def.Operation == ast.Mutation {
		switch opts.Mode {
		case MutationModeNone:
			return nil, fmt.Errorf("operation %s: mutations are disabled by configuration", def.Name)
		case MutationModeExplicit:
			if raw.ExplicitDescription == "" {
				return nil, fmt.Errorf("operation %s: mutation requires an explicit description to be exposed", def.Name)
			}
		}
	}

	inputSchema := schemaForVariables(def.VariableDefinitions, schema, customScalars)
	description := raw.ExplicitDescription
	if description == "" {
		description = synthesizeDescription(raw.SourceText, def, schema, opts)
	}

	var outputSchema map[string]any
	if opts.EnableOutputSchema {
		outputSchema = buildOutputSchema(def, schema)
	}

	op := &Operation{
		Name:             def.Name,
		OperationType:    def.Operation,
		SourcePath:       raw.SourcePath,
		SourceText:       raw.SourceText,
		PersistedQueryID: raw.PersistedQueryID,
		Document:         doc,
		Definition:       def,
		Description:      description,
		InputSchema:      inputSchema,
		OutputSchema:     outputSchema,
	}
	logTokenEstimate(op)
	return op, nil
}

// logTokenEstimate records the tool's character count (description plus
// name) on op; it does not log anything itself. The "estimated tokens:
// chars/4" log line (see SPEC_FULL.md's SUPPLEMENTED FEATURES entry) is
// emitted from that count by internal/mcpserver when it registers the tool.
func logTokenEstimate(op *Operation) {
	op.charLength = len(op.Description) + len(op.Name)
}

// CharLength is the synthesized character length backing the
// "Estimated tokens: chars/4" diagnostic logged when a tool is built.
func (o *Operation) CharLength() int { return o.charLength }

// Validate re-runs schema validation for an already-parsed document, used
// by the `validate` built-in tool (C6) to check ad-hoc operation text a
// caller supplies without registering it as a tool.
func Validate(schema *gqlschema.Snapshot, sourceText string) error {
	_, err := parseAndValidate(schema, sourceText)
	return err
}

// ValidateExecutable is Validate plus the same operation-type policy
// FromDocument enforces: subscriptions are always rejected, and mutations
// are rejected outright when mode is MutationModeNone. This is what the
// `execute` built-in tool (§4.6) runs against ad-hoc query text, since
// Validate alone only checks parse/schema validity and would let a
// MutationMode=None deployment run arbitrary mutations through `execute`.
func ValidateExecutable(schema *gqlschema.Snapshot, sourceText string, mode MutationMode) error {
	doc, err := parseAndValidate(schema, sourceText)
	if err != nil {
		return err
	}
	for _, def := range doc.Operations {
		if def.Operation == ast.Subscription {
			return &operrors.SubscriptionNotAllowedError{Operation: def.Name}
		}
		if def.Operation == ast.Mutation && mode == MutationModeNone {
			return fmt.Errorf("operation %s: mutations are disabled by configuration", def.Name)
		}
	}
	return nil
}

func parseAndValidate(schema *gqlschema.Snapshot, sourceText string) (*ast.QueryDocument, error) {
	doc, err := gqlparser.LoadQuery(schema.Raw, sourceText)
	if err != nil {
		return nil, err
	}
	errs := validator.Validate(schema.Raw, doc)
	if len(errs) > 0 {
		return nil, errs
	}
	return doc, nil
}

// synthesizeDescription builds the third-precedence tool description
// (§4.1 step 5c): the leading comment, then for each root selection field its
// own docstring plus a sentence describing its return shape, then — unless
// suppressed — a tree-shaken SDL fragment of the types those fields
// reference. disable_type_description and disable_schema_description
// suppress the second and third parts respectively.
func synthesizeDescription(sourceText string, def *ast.OperationDefinition, schema *gqlschema.Snapshot, opts Options) string {
	parts := []string{}
	if doc := extractLeadingComment(sourceText, def); doc != "" {
		parts = append(parts, doc)
	}

	var referencedTypes []string
	for _, sel := range def.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		rootField, _, ok := schema.RootField(field.Name)
		if !ok || rootField.Type == nil {
			continue
		}
		if !opts.DisableTypeDescription {
			if sentence := fieldDescriptionSentence(rootField); sentence != "" {
				parts = append(parts, sentence)
			}
		}
		referencedTypes = append(referencedTypes, namedTypeOf(rootField.Type))
	}

	if !opts.DisableSchemaDescription && len(referencedTypes) > 0 {
		if sdl := schema.Shake(referencedTypes, gqlschema.ShakeOptions{LeafDepth: 1, IntermediateDepth: 1}); sdl != "" {
			parts = append(parts, sdl)
		}
	}

	return strings.Join(parts, "\n---\n")
}

// fieldDescriptionSentence joins a root field's own docstring with a
// sentence describing its return shape ("is optional", "is an array of",
// etc.), matching spec.md §4.1 step 5c.
func fieldDescriptionSentence(field *ast.FieldDefinition) string {
	shape := typeShapeSentence(field.Type)
	if field.Description != "" && shape != "" {
		return field.Description + " " + shape
	}
	if field.Description != "" {
		return field.Description
	}
	return shape
}

func typeShapeSentence(t *ast.Type) string {
	if t == nil {
		return ""
	}
	if t.Elem != nil {
		return fmt.Sprintf("Returns an array of %s.", namedTypeOf(t))
	}
	if !t.NonNull {
		return fmt.Sprintf("Returns %s; this field is optional.", t.NamedType)
	}
	return fmt.Sprintf("Returns %s.", t.NamedType)
}

// namedTypeOf unwraps list/non-null wrappers to the underlying named type.
func namedTypeOf(t *ast.Type) string {
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

// extractLeadingComment slices the raw source text for the run of `#`
// comment lines that immediately precede the operation keyword, since
// gqlparser's AST does not retain comment tokens.
func extractLeadingComment(sourceText string, def *ast.OperationDefinition) string {
	idx := strings.Index(sourceText, "query "+def.Name)
	if idx < 0 {
		idx = strings.Index(sourceText, "mutation "+def.Name)
	}
	if idx < 0 {
		idx = strings.Index(sourceText, "subscription "+def.Name)
	}
	if idx < 0 {
		return ""
	}
	before := sourceText[:idx]
	lines := strings.Split(strings.TrimRight(before, "\n"), "\n")
	var commentLines []string
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			if len(commentLines) > 0 {
				break
			}
			continue
		}
		m := commentLine.FindStringSubmatch(line)
		if m == nil {
			break
		}
		commentLines = append([]string{m[1]}, commentLines...)
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}
