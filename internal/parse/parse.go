// Package parse defines the syntax-tree surface the Stage Builders consume
// (spec.md §4.6), deliberately hiding the concrete parser behind an
// interface — builders never import a grammar package directly.
package parse

import "context"

// DeclKind classifies one declaration extracted from a source file.
type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclFunction
	DeclVariable
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclFunction:
		return "function"
	case DeclVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Declaration is one Class/Function/Variable binding found while walking
// the syntax tree (spec.md §4.6 ARCH: "create Class/Function/Variable
// children with ranges and section ids").
type Declaration struct {
	Kind   DeclKind
	Name   string
	Start  int
	End    int
	Parent int // index into Tree.Declarations of the lexically enclosing declaration, -1 for module level
	Bases  []string // unresolved base-class names, for DeclClass only
	// Value holds the literal string assigned, for a DeclVariable bound to a
	// bare string literal (e.g. `_name = "res.partner"`); empty otherwise.
	// Consulted directly by the ODOO builder for _name/_inherit detection.
	Value string
	// Literal holds the raw source text of a bare literal RHS (string,
	// number, bool, or None), for a DeclVariable; HasLiteral reports whether
	// it was set. Seeds the Variable's own evaluation for follow_ref.
	Literal    string
	HasLiteral bool
	// RefName holds the bare identifier on the RHS of `name = other_name`,
	// for a DeclVariable; empty for anything else. ARCH attaches an
	// unresolved evaluation naming it; ARCH_EVAL resolves it through the
	// Name Resolver the same way it elaborates class bases.
	RefName string
}

// ImportedName is one name bound by a `from X import a as b` clause.
type ImportedName struct {
	Name  string
	Alias string
}

// Import is one import statement (spec.md §4.6 ARCH: "record imports as
// evaluations targeting paths").
type Import struct {
	// Module is the dotted path segments of the imported module
	// (`from a.b import c` -> ["a", "b"]); empty for a bare `import x`
	// where Names carries the single segment instead.
	Module []string
	Names  []ImportedName
	Start  int
	End    int
}

// Region is one control-flow scope region (an if/elif/else branch, a loop
// or try/except body) relevant to name binding: the ARCH builder opens a
// section for each so that lookups only see bindings whose region contains
// the queried position (spec.md §4.2).
type Region struct {
	Start  int
	End    int
	Parent int // index into Tree.Declarations of the enclosing class/function, -1 for module level
}

// Diagnostic is a recoverable syntax error surfaced from the parser
// (spec.md §7: "Syntax/parse errors from the external parser: surfaced as
// diagnostics on the file; the engine still builds whatever it can").
type Diagnostic struct {
	Message string
	Start   int
	End     int
}

// Tree is the flattened, language-agnostic result of parsing one file.
type Tree struct {
	Length       int
	Declarations []Declaration
	Imports      []Import
	Regions      []Region
	Diagnostics  []Diagnostic
}

// Parser turns source bytes into a Tree.
type Parser interface {
	Parse(ctx context.Context, content []byte) (*Tree, error)
}
