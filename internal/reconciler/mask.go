package reconciler

import "regexp"

// Mask filters which operations are allowed to become tools by name,
// adapted from the teacher's MaskConfig/isOperationAllowed
// (pkg/graphqlmcp/mcp_options.go): the block list is checked first and
// always wins, then an empty allow list permits everything else, and a
// non-empty allow list requires a match.
type Mask struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewMask compiles the given patterns, silently skipping any pattern that
// fails to compile as a regexp rather than failing startup over one bad
// pattern, matching the teacher's behavior.
func NewMask(allowList, blockList []string) *Mask {
	m := &Mask{}
	for _, p := range allowList {
		if re, err := regexp.Compile(p); err == nil {
			m.allow = append(m.allow, re)
		}
	}
	for _, p := range blockList {
		if re, err := regexp.Compile(p); err == nil {
			m.block = append(m.block, re)
		}
	}
	return m
}

// Allows reports whether an operation named name may become a tool.
func (m *Mask) Allows(name string) bool {
	if m == nil {
		return true
	}
	for _, re := range m.block {
		if re.MatchString(name) {
			return false
		}
	}
	if len(m.allow) == 0 {
		return true
	}
	for _, re := range m.allow {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
